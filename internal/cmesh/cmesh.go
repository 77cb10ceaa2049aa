// Package cmesh implements the coarse mesh (§4.1 of the specification): a
// reference-counted, build-then-commit container of trees indexed by
// global tree id, partitioned or replicated across MPI ranks.
package cmesh

import (
	"fmt"

	"github.com/nicolagi/t8mesh/internal/debug"
	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CoarseMesh is the connectivity graph of trees described in spec §3. Use
// New to construct one, then SetMPIComm/SetPartitioned-or-SetNumTrees/
// SetTree/JoinFaces to build it, then Commit to freeze it.
type CoarseMesh struct {
	committed bool
	dimension int // -1 until the first tree is set

	partitioned    bool
	partitionedSet bool
	numTreesSet    bool

	comm    mpicomm.Comm
	doDup   bool
	mpiRank int
	mpiSize int

	numTrees      int64 // global tree count
	numLocalTrees int64
	numGhosts     int64
	firstTree     int64
	// treeOffsets would map rank -> first_tree(rank) (length mpiSize+1)
	// once populated. Filling it in is the job of the partition/exchange
	// machinery that actually moves trees between ranks, which spec §1
	// places out of scope ("load balancing beyond uniform partition");
	// nothing in this module writes to it, so it stays nil.
	treeOffsets []int64

	trees       []Tree // local trees, length numLocalTrees (or numTrees if replicated)
	ghostTrees  []Tree // cmesh-level ghost trees, length numGhosts
	numPerClass [8]int64

	refcount int
}

// New returns a fresh, uncommitted CoarseMesh with refcount 1, dimension
// unset, and the default single-rank communicator (mpicomm.World).
func New() *CoarseMesh {
	return &CoarseMesh{
		dimension: -1,
		comm:      mpicomm.World(),
		mpiRank:   -1,
		mpiSize:   -1,
		refcount:  1,
	}
}

// SetMPIComm records the communicator to commit against, and whether to
// duplicate it. May only be called once, before Commit.
func (m *CoarseMesh) SetMPIComm(comm mpicomm.Comm, doDup bool) error {
	const method = "CoarseMesh.SetMPIComm"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if comm == nil {
		return errorf(method, "%w", ErrNullComm)
	}
	if m.comm != mpicomm.World() {
		return errorf(method, "%w", ErrDoubleSet)
	}
	m.comm = comm
	m.doDup = doDup
	return nil
}

// SetPartitioned records whether the mesh is partitioned across ranks. If
// partitioned is false, this is equivalent to SetNumTrees(numGlobalTrees)
// and firstLocalTree/numGhosts are ignored. Otherwise it records the
// global tree count, this rank's first tree id, and the cmesh-level
// ghost-tree count, deferring the local tree count to a subsequent
// SetNumTrees call.
func (m *CoarseMesh) SetPartitioned(partitioned bool, numGlobalTrees, firstLocalTree, numGhosts int64) error {
	const method = "CoarseMesh.SetPartitioned"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if m.partitionedSet {
		return errorf(method, "%w", ErrDoubleSet)
	}
	if m.numTreesSet {
		return errorf(method, "%w", ErrDoubleSet)
	}
	if firstLocalTree != 0 && !partitioned {
		return errorf(method, "firstLocalTree must be 0 when not partitioned")
	}
	m.partitionedSet = true
	m.partitioned = partitioned
	if !partitioned {
		return m.SetNumTrees(numGlobalTrees)
	}
	m.numTrees = numGlobalTrees
	m.firstTree = firstLocalTree
	m.numGhosts = numGhosts
	m.ghostTrees = make([]Tree, numGhosts)
	return nil
}

// SetNumTrees sets the number of trees this rank will hold. If the mesh
// was marked partitioned by SetPartitioned, n is the local tree count (0
// is allowed: this rank may be empty). Otherwise n is both the global and
// local tree count, and must be positive.
func (m *CoarseMesh) SetNumTrees(n int64) error {
	const method = "CoarseMesh.SetNumTrees"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if m.numTreesSet {
		return errorf(method, "%w", ErrDoubleSet)
	}
	if m.partitioned {
		if n < 0 {
			return errorf(method, "negative local tree count %d", n)
		}
		m.numLocalTrees = n
	} else {
		if n <= 0 {
			return errorf(method, "non-positive tree count %d for a replicated mesh", n)
		}
		m.numTrees = n
		m.numLocalTrees = n
	}
	m.trees = make([]Tree, m.numLocalTrees)
	m.numTreesSet = true
	return nil
}

// SetTree records the element class of the tree at the given global id,
// which must be valid for this rank (see TreeIDIsValid). The first call
// fixes the mesh's dimension from the tree's class; subsequent calls
// assert the same dimension.
func (m *CoarseMesh) SetTree(treeID int64, ec eclass.Class) error {
	const method = "CoarseMesh.SetTree"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if !ec.Valid() {
		return errorf(method, "invalid element class %v", ec)
	}
	if !m.TreeIDIsValid(treeID) {
		return errorf(method, "tree id %d: %w", treeID, ErrInvalidTree)
	}
	if m.dimension == -1 {
		m.dimension = ec.Dimension()
	} else if ec.Dimension() != m.dimension {
		return errorf(method, "tree %d has class %v (dimension %d), mesh dimension is %d: %w",
			treeID, ec, ec.Dimension(), m.dimension, ErrDimensionMismatch)
	}
	m.numPerClass[ec]++

	idx := m.TreeIndex(treeID)
	m.trees[idx] = Tree{
		TreeID:        treeID,
		Eclass:        ec,
		FaceNeighbors: make([]FaceNeighbor, ec.NumFaces()),
	}
	log.WithFields(log.Fields{
		"treeID": treeID,
		"eclass": ec,
	}).Debug("cmesh: set tree")
	return nil
}

// SetGhostTree records the element class of one of this rank's cmesh-level
// ghost trees (a tree owned by another rank, touching this rank's trees
// through a face, tracked so face-neighbor lookups can resolve). This
// operation has no counterpart in the upstream operations table: there,
// cmesh ghosts are populated by the (out of scope, per spec §1) partition
// and exchange machinery. It is included here, as a thin builder op
// mirroring SetTree, purely so GhostClass is directly exercisable without
// that external machinery; internal/ghost's own builder does not go
// through this path, since it only ever needs CoarseMesh.TreeClass.
func (m *CoarseMesh) SetGhostTree(ghostLocalIndex, treeID int64, ec eclass.Class) error {
	const method = "CoarseMesh.SetGhostTree"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if !ec.Valid() {
		return errorf(method, "invalid element class %v", ec)
	}
	if ghostLocalIndex < 0 || ghostLocalIndex >= int64(len(m.ghostTrees)) {
		return errorf(method, "ghost index %d out of range [0,%d)", ghostLocalIndex, len(m.ghostTrees))
	}
	m.ghostTrees[ghostLocalIndex] = Tree{TreeID: treeID, Eclass: ec}
	return nil
}

// SetFaceNeighbor directly records the face-neighbor connectivity that a
// working JoinFaces would eventually compute from a symmetric pair of
// join calls. JoinFaces itself remains the acknowledged stub from the
// upstream source (spec §9); this lower-level setter exists, in the same
// spirit as SetGhostTree, purely so the ghost-layer builder's
// face-translation step (spec §4.3 step 4) is exercisable by tests
// before a real join implementation lands.
func (m *CoarseMesh) SetFaceNeighbor(treeID int64, face int, neighborTreeID int64, neighborEclass eclass.Class, treeToFaceCode int) error {
	const method = "CoarseMesh.SetFaceNeighbor"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if !m.TreeIDIsValid(treeID) {
		return errorf(method, "tree id %d: %w", treeID, ErrInvalidTree)
	}
	idx := m.TreeIndex(treeID)
	neighbors := m.trees[idx].FaceNeighbors
	if face < 0 || face >= len(neighbors) {
		return errorf(method, "face %d out of range [0,%d) for tree %d", face, len(neighbors), treeID)
	}
	neighbors[face] = FaceNeighbor{
		Set:            true,
		NeighborTreeID: neighborTreeID,
		NeighborEclass: neighborEclass,
		TreeToFaceCode: treeToFaceCode,
	}
	return nil
}

// JoinFaces is left unimplemented by the upstream source (spec §9): its
// exact semantics for trees not owned by this rank are unspecified there.
// The tree_to_face encoding this module would use, once implemented, is
// fixed by EncodeTreeToFace/DecodeTreeToFace.
func (m *CoarseMesh) JoinFaces(tree1, tree2 int64, face1, face2, orientation int) error {
	const method = "CoarseMesh.JoinFaces"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if !m.TreeIDIsValid(tree1) && !m.TreeIDIsValid(tree2) {
		return errorf(method, "neither tree %d nor %d is local: %w", tree1, tree2, ErrInvalidTree)
	}
	return errorf(method, "%w", ErrNotImplemented)
}

// Commit freezes the mesh: dups the communicator if requested, then
// queries rank and size. Must be called collectively by every rank of the
// communicator.
func (m *CoarseMesh) Commit() error {
	const method = "CoarseMesh.Commit"
	if m.committed {
		return errorf(method, "%w", ErrCommitted)
	}
	if m.comm == nil {
		return errorf(method, "%w", ErrNullComm)
	}
	if m.numTrees == 0 {
		return errorf(method, "%w", ErrEmpty)
	}
	m.committed = true

	if m.doDup {
		duped, err := m.comm.Dup()
		if err != nil {
			return errorf(method, "dup: %v", errors.WithStack(err))
		}
		m.comm = duped
	}
	size, err := m.comm.Size()
	if err != nil {
		return errorf(method, "size: %v", errors.WithStack(err))
	}
	rank, err := m.comm.Rank()
	if err != nil {
		return errorf(method, "rank: %v", errors.WithStack(err))
	}
	m.mpiSize = size
	m.mpiRank = rank
	log.WithFields(log.Fields{
		"numTrees":      m.numTrees,
		"numLocalTrees": m.numLocalTrees,
		"partitioned":   m.partitioned,
		"mpiRank":       m.mpiRank,
		"mpiSize":       m.mpiSize,
	}).Debug("cmesh: committed")
	return nil
}

// Comm returns the (possibly duped) communicator and the do-dup flag, for
// collaborators that need to issue further collective calls consistent
// with this mesh's own communicator (e.g. the ghost-layer builder).
func (m *CoarseMesh) Comm() (mpicomm.Comm, bool) {
	return m.comm, m.doDup
}

// NumTrees returns the global tree count. Requires a committed mesh.
func (m *CoarseMesh) NumTrees() int64 {
	debug.Assert(m.committed, "CoarseMesh.NumTrees: not committed")
	return m.numTrees
}

// NumLocalTrees returns the number of trees on this rank; equal to
// NumTrees for a replicated mesh. Requires a committed mesh.
func (m *CoarseMesh) NumLocalTrees() int64 {
	debug.Assert(m.committed, "CoarseMesh.NumLocalTrees: not committed")
	if m.partitioned {
		return m.numLocalTrees
	}
	return m.numTrees
}

// NumGhosts returns the number of cmesh-level ghost trees on this rank.
func (m *CoarseMesh) NumGhosts() int64 {
	debug.Assert(m.committed, "CoarseMesh.NumGhosts: not committed")
	return m.numGhosts
}

// NumTreesPerClass returns how many trees of the given element class this
// rank holds locally.
func (m *CoarseMesh) NumTreesPerClass(ec eclass.Class) int64 {
	if !ec.Valid() {
		return 0
	}
	return m.numPerClass[ec]
}

// Dimension returns the mesh's dimension, or -1 if no tree has been set
// yet.
func (m *CoarseMesh) Dimension() int { return m.dimension }

// Partitioned reports whether the mesh is partitioned across ranks.
func (m *CoarseMesh) Partitioned() bool { return m.partitioned }

// MPIRank and MPISize return this rank's identity within the committed
// communicator.
func (m *CoarseMesh) MPIRank() int { return m.mpiRank }
func (m *CoarseMesh) MPISize() int { return m.mpiSize }

// FirstTreeID returns the global id of this rank's first local tree (0 if
// replicated).
func (m *CoarseMesh) FirstTreeID() int64 { return m.firstTree }

// TreeIDIsValid reports whether treeID names a tree local to this rank
// (or, if replicated, any tree in the mesh).
//
// The upstream source uses a strict "<" for the partitioned lower bound,
// which rejects first_tree itself - spec §9 flags this as a likely bug.
// This is the fixed version, using "<=".
func (m *CoarseMesh) TreeIDIsValid(treeID int64) bool {
	if m.partitioned {
		return m.firstTree <= treeID && treeID < m.firstTree+m.numLocalTrees
	}
	return 0 <= treeID && treeID < m.numTrees
}

// TreeIndex converts a global tree id, valid per TreeIDIsValid, to an
// index into this rank's local tree array.
func (m *CoarseMesh) TreeIndex(treeID int64) int64 {
	debug.Assert(m.TreeIDIsValid(treeID), "CoarseMesh.TreeIndex: tree id %d not valid for this rank", treeID)
	if m.partitioned {
		return treeID - m.firstTree
	}
	return treeID
}

// TreeClass returns the element class of the given global tree id.
// Requires a committed mesh.
func (m *CoarseMesh) TreeClass(treeID int64) (eclass.Class, error) {
	const method = "CoarseMesh.TreeClass"
	if !m.committed {
		return 0, errorf(method, "%w", ErrUncommitted)
	}
	if !m.TreeIDIsValid(treeID) {
		return 0, errorf(method, "tree id %d: %w", treeID, ErrInvalidTree)
	}
	return m.trees[m.TreeIndex(treeID)].Eclass, nil
}

// Tree returns a copy of the local tree at the given global id, including
// its face neighbors.
func (m *CoarseMesh) Tree(treeID int64) (Tree, error) {
	const method = "CoarseMesh.Tree"
	if !m.committed {
		return Tree{}, errorf(method, "%w", ErrUncommitted)
	}
	if !m.TreeIDIsValid(treeID) {
		return Tree{}, errorf(method, "tree id %d: %w", treeID, ErrInvalidTree)
	}
	return m.trees[m.TreeIndex(treeID)], nil
}

// GhostClass returns the element class of the cmesh-level ghost tree at
// the given local ghost index (0-based, distinct from the local tree
// index space).
func (m *CoarseMesh) GhostClass(ghostLocalIndex int64) (eclass.Class, error) {
	const method = "CoarseMesh.GhostClass"
	if !m.committed {
		return 0, errorf(method, "%w", ErrUncommitted)
	}
	if ghostLocalIndex < 0 || ghostLocalIndex >= int64(len(m.ghostTrees)) {
		return 0, errorf(method, "ghost index %d out of range [0,%d)", ghostLocalIndex, len(m.ghostTrees))
	}
	return m.ghostTrees[ghostLocalIndex].Eclass, nil
}

// Ref increments the reference count.
func (m *CoarseMesh) Ref() { m.refcount++ }

// Unref decrements the reference count and reports whether this was the
// last reference (in which case the caller should drop its handle; there
// is nothing further to release explicitly since Go's GC reclaims the
// mesh's memory once unreachable).
func (m *CoarseMesh) Unref() (destroyed bool) {
	m.refcount--
	debug.Assert(m.refcount >= 0, "CoarseMesh.Unref: refcount went negative")
	return m.refcount == 0
}

// Refcount returns the current reference count, for tests.
func (m *CoarseMesh) Refcount() int { return m.refcount }

func (m *CoarseMesh) String() string {
	return fmt.Sprintf("cmesh(dimension=%d, numTrees=%d, numLocalTrees=%d, partitioned=%v, committed=%v)",
		m.dimension, m.numTrees, m.numLocalTrees, m.partitioned, m.committed)
}
