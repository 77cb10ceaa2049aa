package persist

import (
	"errors"
	"testing"

	"github.com/nicolagi/t8mesh/internal/config"
)

func TestKeyForIsDeterministicAndContentAddressed(t *testing.T) {
	a := KeyFor(Value("ghost layer snapshot"))
	b := KeyFor(Value("ghost layer snapshot"))
	if a != b {
		t.Fatalf("KeyFor not deterministic: %q != %q", a, b)
	}
	c := KeyFor(Value("a different snapshot"))
	if a == c {
		t.Fatalf("KeyFor collided for distinct values: %q", a)
	}
}

func TestNewSelectsBackendFromConfig(t *testing.T) {
	c := &config.C{CheckpointStorage: "memory"}
	store, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*InMemory); !ok {
		t.Fatalf("got %T, want *InMemory", store)
	}

	c = &config.C{CheckpointStorage: "disk", CheckpointDir: t.TempDir()}
	store, err = New(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*DiskStore); !ok {
		t.Fatalf("got %T, want *DiskStore", store)
	}

	c = &config.C{CheckpointStorage: "carrier-pigeon"}
	if _, err := New(c); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("got %v, want wrapper of %v", err, ErrUnknownBackend)
	}
}
