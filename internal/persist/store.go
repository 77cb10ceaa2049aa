// Package persist implements optional checkpoint storage for serialized
// mesh snapshots (opaque byte values), mirroring the teacher's storage
// package structurally: a small Store contract with disk, in-memory,
// S3, and net/rpc-backed implementations, selected at runtime by
// internal/config. The core mesh model itself is in-memory only (spec
// §6); this package is ambient convenience tooling, letting cmd/meshctl
// and tests avoid rebuilding a mesh from scratch on every run.
package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/nicolagi/t8mesh/internal/config"
)

// Key identifies one checkpoint blob, conventionally the hex SHA-256 of
// its Value, so identical snapshots collapse to the same key.
type Key string

// Value is an opaque serialized checkpoint (cmd/meshctl snapshot stores
// a gob-encoded meshdesc.Spec).
type Value []byte

// KeyFor computes the content-addressed Key for a Value.
func KeyFor(v Value) Key {
	sum := sha256.Sum256(v)
	return Key(hex.EncodeToString(sum[:]))
}

// Store is the checkpoint storage contract.
type Store interface {
	Get(Key) (Value, error)
	Put(Key, Value) error
	Delete(Key) error
}

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/t8mesh/internal/persist."+typeMethod+": "+format, a...)
}

// baseErr mirrors the sentinel error pattern used throughout this
// module (see internal/cmesh/error.go).
type baseErr string

func (e baseErr) Error() string { return string(e) }

// ErrNotFound is returned by Get when the key is absent, and by
// DiskStore.Delete. The other stores' Delete does not report a missing
// key.
const ErrNotFound = baseErr("persist: checkpoint not found")

// ErrUnknownBackend is returned by New for a CheckpointStorage value
// other than "disk", "memory", or "s3".
const ErrUnknownBackend = baseErr("persist: unknown checkpoint storage backend")

// New returns the Store selected by c.CheckpointStorage.
func New(c *config.C) (Store, error) {
	const method = "New"
	switch c.CheckpointStorage {
	case "disk":
		return NewDiskStore(c.CheckpointDir), nil
	case "memory":
		return &InMemory{}, nil
	case "s3":
		return NewS3Store(c)
	default:
		return nil, errorf(method, "%q: %w", c.CheckpointStorage, ErrUnknownBackend)
	}
}
