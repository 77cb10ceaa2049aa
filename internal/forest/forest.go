// Package forest implements the forest-accessor collaborator contract
// of spec §6: a committed coarse mesh, one refined-element array per
// local tree, and the element scheme refining them. The ghost-layer
// builder (internal/ghost) consumes a Forest exclusively through these
// accessors, mirroring how the upstream ghost algorithm only ever calls
// into t8_forest_* functions, never reaching into forest internals.
package forest

import (
	"fmt"

	"github.com/nicolagi/t8mesh/internal/cmesh"
	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/partition"
	"github.com/nicolagi/t8mesh/internal/scheme"
)

type baseErr string

func (e baseErr) Error() string { return string(e) }

const (
	// ErrInvalidLocalTree is returned by accessors given a forest-local
	// tree index out of range.
	ErrInvalidLocalTree = baseErr("forest: invalid local tree index")

	// ErrMismatchedTreeCount is returned by Build when the number of
	// per-tree element slices does not equal the mesh's local tree
	// count.
	ErrMismatchedTreeCount = baseErr("forest: element array count does not match local tree count")

	// ErrWrongEclass is returned by Build when the scheme's class does
	// not match the mesh's dimension (a forest refines a whole mesh
	// uniformly in this model, so one scheme must fit every tree).
	ErrWrongEclass = baseErr("forest: scheme element class does not match coarse mesh dimension")
)

func errorf(method, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/t8mesh/internal/forest."+method+": "+format, a...)
}

// NotLocal is the sentinel forest-local tree index returned by
// CmeshLtreeidToLtreeid when the queried cmesh-local tree is not one the
// forest holds elements for (a cmesh-level ghost tree, tracked only for
// its face-adjacency, spec §4.3 step 4).
const NotLocal int64 = -1

// Forest is a uniformly refined forest built on top of a committed
// coarse mesh: each local tree is refined to the same level by the same
// scheme.
type Forest struct {
	cmesh  *cmesh.CoarseMesh
	scheme scheme.Scheme
	level  int

	// elements[i] holds the refined elements of the local tree at index
	// i, i.e. global tree id cmesh.FirstTreeID()+i, in the scheme's
	// linear order.
	elements [][]scheme.Element

	firstTreeShared bool
	lastTreeShared  bool
}

// Build assembles a Forest from a committed mesh, the scheme refining
// every tree, the common refinement level, one element slice per local
// tree (already in the scheme's linear order), and whether this rank's
// first/last local tree is shared with a neighboring rank (as the
// coarse mesh's partition would report, out of scope here per spec §1,
// so the caller supplies it directly; internal/ghost's tests and
// internal/meshdesc pass false for both).
func Build(m *cmesh.CoarseMesh, sch scheme.Scheme, level int, elementsPerTree [][]scheme.Element, firstTreeShared, lastTreeShared bool) (*Forest, error) {
	const method = "Build"
	if sch.Eclass().Dimension() != m.Dimension() {
		return nil, errorf(method, "%w", ErrWrongEclass)
	}
	if int64(len(elementsPerTree)) != m.NumLocalTrees() {
		return nil, errorf(method, "%w: got %d slices, %d local trees", ErrMismatchedTreeCount, len(elementsPerTree), m.NumLocalTrees())
	}
	return &Forest{
		cmesh:           m,
		scheme:          sch,
		level:           level,
		elements:        elementsPerTree,
		firstTreeShared: firstTreeShared,
		lastTreeShared:  lastTreeShared,
	}, nil
}

// GetCmesh returns the coarse mesh underlying this forest.
func (f *Forest) GetCmesh() *cmesh.CoarseMesh { return f.cmesh }

// GetElementScheme returns the scheme refining every tree of this forest.
func (f *Forest) GetElementScheme() scheme.Scheme { return f.scheme }

// Level returns the common refinement level of this forest.
func (f *Forest) Level() int { return f.level }

// GetNumLocalTrees returns the number of local trees, identical to the
// underlying mesh's.
func (f *Forest) GetNumLocalTrees() int64 { return f.cmesh.NumLocalTrees() }

// GetFirstLocalTreeID returns the global id of this rank's first local
// tree.
func (f *Forest) GetFirstLocalTreeID() int64 { return f.cmesh.FirstTreeID() }

// FirstTreeShared reports whether this rank's first local tree is also
// held (for its ghost elements) by the previous rank.
func (f *Forest) FirstTreeShared() bool { return f.firstTreeShared }

// LastTreeShared reports whether this rank's last local tree is also
// held by the next rank.
func (f *Forest) LastTreeShared() bool { return f.lastTreeShared }

// GetTreeClass returns the element class of the local tree at the given
// forest-local index.
func (f *Forest) GetTreeClass(ltreeid int64) (eclass.Class, error) {
	const method = "GetTreeClass"
	gid, err := f.globalID(method, ltreeid)
	if err != nil {
		return 0, err
	}
	return f.cmesh.TreeClass(gid)
}

// GetCoarseTreeExt returns the coarse-mesh tree underlying the given
// forest-local tree index, including its face-neighbor table.
func (f *Forest) GetCoarseTreeExt(ltreeid int64) (cmesh.Tree, error) {
	const method = "GetCoarseTreeExt"
	gid, err := f.globalID(method, ltreeid)
	if err != nil {
		return cmesh.Tree{}, err
	}
	return f.cmesh.Tree(gid)
}

// GetTreeElementCount returns how many refined elements the given
// forest-local tree holds.
func (f *Forest) GetTreeElementCount(ltreeid int64) (int, error) {
	const method = "GetTreeElementCount"
	if ltreeid < 0 || ltreeid >= int64(len(f.elements)) {
		return 0, errorf(method, "%w", ErrInvalidLocalTree)
	}
	return len(f.elements[ltreeid]), nil
}

// GetTreeElement returns the i-th refined element (scheme linear order)
// of the given forest-local tree.
func (f *Forest) GetTreeElement(ltreeid int64, i int) (scheme.Element, error) {
	const method = "GetTreeElement"
	if ltreeid < 0 || ltreeid >= int64(len(f.elements)) {
		return scheme.Element{}, errorf(method, "%w", ErrInvalidLocalTree)
	}
	elems := f.elements[ltreeid]
	if i < 0 || i >= len(elems) {
		return scheme.Element{}, errorf(method, "element index %d out of range [0,%d)", i, len(elems))
	}
	return elems[i], nil
}

// CmeshLtreeidToLtreeid translates a cmesh-local tree id (the
// NeighborTreeID field of a cmesh.FaceNeighbor, which this forest's
// trees may point at) to a forest-local tree index, or NotLocal if that
// tree is a cmesh-level ghost this forest holds no elements for.
//
// In this model, a forest refines every local tree of its coarse mesh
// and nothing else, so a cmesh-local tree id is forest-local exactly
// when it addresses one of this rank's own trees.
func (f *Forest) CmeshLtreeidToLtreeid(cltid int64) int64 {
	first := f.cmesh.FirstTreeID()
	if cltid < first || cltid >= first+f.cmesh.NumLocalTrees() {
		return NotLocal
	}
	return cltid - first
}

// ElementNeighborEclass returns the element class on the other side of
// elem's face, resolving within the tree via the scheme when possible
// and falling back to the coarse mesh's face-neighbor table at a tree
// boundary.
func (f *Forest) ElementNeighborEclass(ltreeid int64, elem scheme.Element, face int) (eclass.Class, error) {
	const method = "ElementNeighborEclass"
	ctree, err := f.GetCoarseTreeExt(ltreeid)
	if err != nil {
		return 0, err
	}
	if _, ok := f.schemeNeighbor(elem, face); ok {
		return ctree.Eclass, nil
	}
	if face < 0 || face >= len(ctree.FaceNeighbors) {
		return 0, errorf(method, "face %d out of range for tree class %v", face, ctree.Eclass)
	}
	fn := ctree.FaceNeighbors[face]
	if !fn.Set {
		// Domain boundary: no neighbor at all. The source treats this
		// the same as "skip" downstream (spec §4.3 step 3), so we
		// return the tree's own class as a harmless placeholder; this
		// value is never used when the caller first checks for a
		// boundary via ElementHalfFaceNeighbors.
		return ctree.Eclass, nil
	}
	return fn.NeighborEclass, nil
}

// ElementHalfFaceNeighbors constructs the half-face neighbors of elem
// across the given face (spec §4.3 step 3): the global id of the tree
// containing them (negative at a domain boundary, in which case the
// returned slice is empty), and the neighbor elements themselves, in
// the neighbor tree's local coordinate frame.
//
// MortonScheme never needs more than one half-face neighbor (it only
// builds uniformly refined forests), so the returned slice always has
// length 0 or 1; a scheme supporting adaptive refinement would return
// up to NumFaceChildren of them.
func (f *Forest) ElementHalfFaceNeighbors(ltreeid int64, elem scheme.Element, face int) (neighborTree int64, neighbors []scheme.Element, err error) {
	const method = "ElementHalfFaceNeighbors"
	gid, err := f.globalID(method, ltreeid)
	if err != nil {
		return 0, nil, err
	}
	if within, ok := f.schemeNeighbor(elem, face); ok {
		return gid, []scheme.Element{within}, nil
	}

	ctree, err := f.GetCoarseTreeExt(ltreeid)
	if err != nil {
		return 0, nil, err
	}
	if face < 0 || face >= len(ctree.FaceNeighbors) {
		return 0, nil, errorf(method, "face %d out of range for tree class %v", face, ctree.Eclass)
	}
	fn := ctree.FaceNeighbors[face]
	if !fn.Set {
		return -1, nil, nil // domain boundary, spec §4.3: skip
	}

	mirrored := mirrorAcrossFace(elem, face, fn.TreeToFaceCode)
	return fn.NeighborTreeID, []scheme.Element{mirrored}, nil
}

// ElementFindOwner returns the rank owning the given element of the
// given global tree, per the uniform partition at this forest's level
// (spec §4.3 step 4). It evaluates partition.BoundsForRank for every
// candidate rank in turn; a real deployment would instead keep a
// prefix-sum table to binary-search, but mpiSize here is always small
// enough (a simulated or hand-run cluster) that the linear scan is
// adequate and, crucially, obviously correct.
func (f *Forest) ElementFindOwner(globalTreeID int64, elem scheme.Element, ec eclass.Class) (int, error) {
	const method = "ElementFindOwner"
	numTrees := f.cmesh.NumTrees()
	dimension := f.cmesh.Dimension()
	size := f.cmesh.MPISize()
	c := int64(1) << uint(dimension*f.level)
	globalChild := globalTreeID*c + int64(f.scheme.LinearID(elem, f.level))

	for rank := 0; rank < size; rank++ {
		b, err := partition.BoundsForRank(numTrees, dimension, f.level, rank, size)
		if err != nil {
			return 0, errorf(method, "%v", err)
		}
		if b.Empty {
			continue
		}
		first := b.FirstLocalTree*c + b.ChildInTreeBegin
		last := b.LastLocalTree*c + b.ChildInTreeEnd
		if globalChild >= first && globalChild < last {
			return rank, nil
		}
	}
	return 0, errorf(method, "no rank owns global child %d (tree %d)", globalChild, globalTreeID)
}

func (f *Forest) globalID(method string, ltreeid int64) (int64, error) {
	if ltreeid < 0 || ltreeid >= int64(len(f.elements)) {
		return 0, errorf(method, "%w", ErrInvalidLocalTree)
	}
	return f.cmesh.FirstTreeID() + ltreeid, nil
}

// schemeNeighbor type-asserts to the concrete scheme methods needed for
// within-tree neighbor lookups. Schemes that do not support uniform
// same-level traversal (none currently) would fail this assertion and
// every face would be treated as a tree boundary.
func (f *Forest) schemeNeighbor(elem scheme.Element, face int) (scheme.Element, bool) {
	type neighborer interface {
		Neighbor(scheme.Element, int) (scheme.Element, bool)
	}
	n, ok := f.scheme.(neighborer)
	if !ok {
		return scheme.Element{}, false
	}
	return n.Neighbor(elem, face)
}

// mirrorAcrossFace reorients elem, which sits on the near side of face
// in its own tree, into the coordinate frame of the neighbor tree on the
// other side, encoded by treeToFaceCode (see cmesh.EncodeTreeToFace).
// Decoding and applying a non-identity orientation requires a working
// JoinFaces, which the upstream source leaves as a stub (spec §9); until
// then, this performs the identity mapping, matching the axis-aligned,
// unrotated joins this module's canonical constructors and tests
// produce.
func mirrorAcrossFace(elem scheme.Element, face, treeToFaceCode int) scheme.Element {
	_ = face
	_ = treeToFaceCode
	return elem
}
