// Package partition implements the uniform partitioner (spec §4.2): a
// pure function that, given a committed coarse mesh and a refinement
// level, computes the contiguous half-open range of refined children
// assigned to this rank.
package partition

import (
	"fmt"
	"math/big"

	"github.com/nicolagi/t8mesh/internal/cmesh"
	"github.com/nicolagi/t8mesh/internal/eclass"
)

// baseErr mirrors cmesh's sentinel error pattern (internal/cmesh/error.go).
type baseErr string

func (e baseErr) Error() string { return string(e) }

const (
	// ErrUnsupportedEclass is returned when the mesh holds any pyramidal
	// tree: the uniform partitioner does not support them (spec §4.2).
	ErrUnsupportedEclass = baseErr("partition: pyramidal elements are not supported")

	// ErrHybridUnsupported is returned when the mesh names more than one
	// element class. The source assumes every tree has the same child
	// count 2^(dimension*level); genuinely hybrid meshes need a
	// prefix-sum over per-tree child counts, which is future work (spec
	// §9) and not attempted here.
	ErrHybridUnsupported = baseErr("partition: hybrid element classes are not supported")

	// ErrNegativeLevel is returned for a negative refinement level.
	ErrNegativeLevel = baseErr("partition: refinement level must be non-negative")
)

func errorf(method, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/t8mesh/internal/partition."+method+": "+format, a...)
}

// Bounds is the half-open global child range assigned to one rank,
// expressed as (tree id, offset within that tree's children) at both
// ends, per spec §4.2.
type Bounds struct {
	FirstLocalTree   int64
	ChildInTreeBegin int64
	LastLocalTree    int64
	ChildInTreeEnd   int64
	Empty            bool
}

// UniformBounds computes this rank's share of the uniformly refined
// forest at the given level, per the algorithm in
// original_source/t8_cmesh.c (t8_cmesh_uniform_bounds, lines 313-384).
//
// The child count c = 2^(dimension * level) this formula assumes is only
// correct when every tree refines the same way. CoarseMesh.SetTree already
// rejects trees whose dimension disagrees with the mesh's (ErrDimensionMismatch),
// but two eclasses can share a dimension and still refine into different
// numbers of children per level (e.g. a quad-triangle mix); since this
// package has no per-eclass child-count table, a mesh naming more than one
// eclass is rejected outright rather than silently computing wrong bounds
// for whichever eclasses do not actually match the quad/hex doubling
// assumed here. original_source/t8_cmesh.c itself never implements the
// general case either (see its own TODO around t8_cmesh_uniform_bounds).
func UniformBounds(m *cmesh.CoarseMesh, level int) (Bounds, error) {
	const method = "UniformBounds"
	if m.NumTreesPerClass(eclass.Pyramid) > 0 {
		return Bounds{}, errorf(method, "%w", ErrUnsupportedEclass)
	}
	if numDistinctEclasses(m) > 1 {
		return Bounds{}, errorf(method, "%w", ErrHybridUnsupported)
	}
	return BoundsForRank(m.NumTrees(), m.Dimension(), level, m.MPIRank(), m.MPISize())
}

// numDistinctEclasses returns how many element classes m has at least one
// tree of.
func numDistinctEclasses(m *cmesh.CoarseMesh) int {
	n := 0
	for c := eclass.Vertex; c <= eclass.Pyramid; c++ {
		if m.NumTreesPerClass(c) > 0 {
			n++
		}
	}
	return n
}

// BoundsForRank is the pyramid-agnostic core of UniformBounds, taking
// the mesh's shape and a specific rank directly rather than reading them
// off a committed CoarseMesh. internal/forest's owner lookup uses this
// to evaluate every candidate rank's share without needing a CoarseMesh
// instance committed under that rank.
func BoundsForRank(numTrees int64, dimension, level, rank, size int) (Bounds, error) {
	const method = "BoundsForRank"
	if level < 0 {
		return Bounds{}, errorf(method, "%w: %d", ErrNegativeLevel, level)
	}

	// c = 2^(dimension*level), computed in big.Int to avoid overflow for
	// large levels before it is ever multiplied by numTrees.
	c := new(big.Int).Lsh(big.NewInt(1), uint(dimension*level))

	// G = num_trees * c, the count of refined children globally.
	g := new(big.Int).Mul(big.NewInt(numTrees), c)

	firstGlobalChild := globalChildBoundary(g, rank, size)
	var lastGlobalChild *big.Int
	if rank == size-1 {
		lastGlobalChild = g
	} else {
		lastGlobalChild = globalChildBoundary(g, rank+1, size)
	}

	firstLocalTree := new(big.Int).Div(firstGlobalChild, c)
	childInTreeBegin := new(big.Int).Sub(firstGlobalChild, new(big.Int).Mul(firstLocalTree, c))

	b := Bounds{
		FirstLocalTree:   firstLocalTree.Int64(),
		ChildInTreeBegin: childInTreeBegin.Int64(),
	}

	if firstGlobalChild.Cmp(lastGlobalChild) == 0 {
		b.Empty = true
		b.LastLocalTree = b.FirstLocalTree
		b.ChildInTreeEnd = lastGlobalChild.Int64()
		return b, nil
	}

	lastChildMinusOne := new(big.Int).Sub(lastGlobalChild, big.NewInt(1))
	lastLocalTree := new(big.Int).Div(lastChildMinusOne, c)
	childInTreeEnd := new(big.Int).Sub(lastGlobalChild, new(big.Int).Mul(lastLocalTree, c))

	b.LastLocalTree = lastLocalTree.Int64()
	b.ChildInTreeEnd = childInTreeEnd.Int64()
	return b, nil
}

// globalChildBoundary computes floor(g*r/size), the child index at which
// rank r's share of the global sequence begins (or, called with r+1,
// ends). Rank 0's lower bound is always exactly 0, handled by the zero
// value of r without needing a special case here since g*0/size == 0.
func globalChildBoundary(g *big.Int, r, size int) *big.Int {
	num := new(big.Int).Mul(g, big.NewInt(int64(r)))
	return num.Div(num, big.NewInt(int64(size)))
}
