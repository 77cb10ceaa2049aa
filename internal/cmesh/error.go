package cmesh

import "fmt"

// baseErr is a sentinel error type for contract violations, which callers
// are expected to test for with errors.Is rather than match on a
// formatted message. Modeled on the teacher's tree.baseErr
// (internal/tree/constants.go).
type baseErr string

func (e baseErr) Error() string { return string(e) }

const (
	// ErrUncommitted is returned by operations that require a committed
	// CoarseMesh, when called before Commit.
	ErrUncommitted = baseErr("cmesh: not committed")

	// ErrCommitted is returned by mutating operations once the
	// CoarseMesh has been committed.
	ErrCommitted = baseErr("cmesh: already committed")

	// ErrInvalidTree is returned when a tree id is not valid for this
	// rank (see CoarseMesh.TreeIDIsValid).
	ErrInvalidTree = baseErr("cmesh: invalid tree id")

	// ErrDimensionMismatch is returned by SetTree when the inserted
	// tree's element class has a different dimension than the mesh's.
	ErrDimensionMismatch = baseErr("cmesh: tree dimension does not match mesh dimension")

	// ErrDoubleSet is returned when an operation that may only be
	// called once (SetMPIComm, SetPartitioned, SetNumTrees) is called
	// again.
	ErrDoubleSet = baseErr("cmesh: already set")

	// ErrNullComm is returned by SetMPIComm when given a nil
	// communicator, and by Commit when no communicator was ever set
	// (which cannot actually happen, since New sets mpicomm.World, but
	// is checked defensively to mirror the source's assertion).
	ErrNullComm = baseErr("cmesh: null communicator")

	// ErrEmpty is returned by Commit when no trees were ever set.
	ErrEmpty = baseErr("cmesh: commit with zero trees")

	// ErrNotImplemented is returned by JoinFaces, which the upstream
	// source leaves unimplemented (see spec §9).
	ErrNotImplemented = baseErr("cmesh: join_faces is not implemented")
)

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/t8mesh/internal/cmesh."+typeMethod+": "+format, a...)
}
