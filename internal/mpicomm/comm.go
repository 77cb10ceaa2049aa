// Package mpicomm provides the MPI-shaped transport contract THE CORE
// depends on (communicator dup, rank and size queries, free), plus two
// concrete implementations: an in-process simulated cluster for tests and
// single-binary demos, and a net/rpc-based communicator for running one
// rank per process. Every call is collective: it must be invoked by every
// rank in the communicator, or behavior is undefined (see spec §5).
package mpicomm

import "errors"

// ErrNull is returned by operations attempted on a freed or never-set
// communicator.
var ErrNull = errors.New("mpicomm: null communicator")

// Comm is the transport contract consumed by internal/cmesh and
// internal/ghost. It corresponds to the subset of the MPI API this module
// needs: Comm_dup, Comm_size, Comm_rank, Comm_free.
type Comm interface {
	// Dup returns a new communicator that is a duplicate of this one,
	// sharing the same group of ranks but distinct for message-matching
	// purposes.
	Dup() (Comm, error)

	// Size returns the number of ranks in the communicator.
	Size() (int, error)

	// Rank returns the rank of the calling process within the
	// communicator, in [0, Size()).
	Rank() (int, error)

	// Free releases resources associated with the communicator. On a
	// communicator obtained via World() it is a no-op.
	Free() error
}

// World returns the default, always-valid, single-rank communicator. It
// models sc_MPI_COMM_WORLD for a process that never joins a larger
// cluster: Size() is always 1, Rank() is always 0, and it cannot be
// duped-and-freed (Free is a no-op, mirroring a communicator the caller
// does not own).
func World() Comm {
	return worldComm{}
}

type worldComm struct{}

func (worldComm) Dup() (Comm, error) { return worldComm{}, nil }
func (worldComm) Size() (int, error) { return 1, nil }
func (worldComm) Rank() (int, error) { return 0, nil }
func (worldComm) Free() error        { return nil }
