package persist

import (
	"bytes"
	"errors"
	"testing"
	"testing/quick"
)

func TestDiskStore(t *testing.T) {
	t.Run("you get what you put", func(t *testing.T) {
		store := NewDiskStore(t.TempDir())
		f := func(key Key, value Value) bool {
			if err := store.Put(key, value); err != nil {
				t.Fatal(err)
			}
			v, err := store.Get(key)
			if err != nil {
				t.Fatal(err)
			}
			return bytes.Equal(v, value)
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
	t.Run("should not get a deleted key", func(t *testing.T) {
		store := NewDiskStore(t.TempDir())
		f := func(key Key, value Value) bool {
			if err := store.Put(key, value); err != nil {
				t.Fatal(err)
			}
			if err := store.Delete(key); err != nil {
				t.Fatal(err)
			}
			v, err := store.Get(key)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("got %v, want wrapper of %v", err, ErrNotFound)
				return false
			}
			return v == nil
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
	t.Run("delete inexistent key gives ErrNotFound", func(t *testing.T) {
		store := NewDiskStore(t.TempDir())
		f := func(key Key) bool {
			err := store.Delete(key)
			ok := errors.Is(err, ErrNotFound)
			if !ok {
				t.Errorf("got %v, want wrapper of %v", err, ErrNotFound)
			}
			return ok
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
}
