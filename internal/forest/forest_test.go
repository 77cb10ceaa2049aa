package forest

import (
	"testing"

	"github.com/nicolagi/t8mesh/internal/cmesh"
	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	"github.com/nicolagi/t8mesh/internal/scheme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoQuadMesh builds a replicated, two-tree quad mesh with tree 0's +x
// face (1) joined to tree 1's -x face (0), leaving every other face at
// the domain boundary.
func twoQuadMesh(t *testing.T) *cmesh.CoarseMesh {
	t.Helper()
	m := cmesh.New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetNumTrees(2))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	require.NoError(t, m.SetTree(1, eclass.Quad))
	require.NoError(t, m.SetFaceNeighbor(0, 1, 1, eclass.Quad, cmesh.EncodeTreeToFace(0, 0, 1)))
	require.NoError(t, m.SetFaceNeighbor(1, 0, 0, eclass.Quad, cmesh.EncodeTreeToFace(1, 0, 1)))
	require.NoError(t, m.Commit())
	return m
}

func uniformRefine(t *testing.T, sch *scheme.MortonScheme, level int) []scheme.Element {
	t.Helper()
	frontier := []scheme.Element{sch.NewRoot()}
	for l := 0; l < level; l++ {
		var next []scheme.Element
		for _, e := range frontier {
			for i := 0; i < sch.NumChildren(); i++ {
				next = append(next, sch.Child(e, i))
			}
		}
		frontier = next
	}
	return frontier
}

func TestBuildRejectsMismatchedEclass(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Hex)
	require.NoError(t, err)
	_, err = Build(m, sch, 1, make([][]scheme.Element, 2), false, false)
	assert.ErrorIs(t, err, ErrWrongEclass)
}

func TestBuildRejectsMismatchedTreeCount(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	_, err = Build(m, sch, 1, make([][]scheme.Element, 1), false, false)
	assert.ErrorIs(t, err, ErrMismatchedTreeCount)
}

func TestAccessorsAndGlobalID(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	level := 1
	elements := [][]scheme.Element{
		uniformRefine(t, sch, level),
		uniformRefine(t, sch, level),
	}
	f, err := Build(m, sch, level, elements, true, false)
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.GetNumLocalTrees())
	assert.Equal(t, int64(0), f.GetFirstLocalTreeID())
	assert.True(t, f.FirstTreeShared())
	assert.False(t, f.LastTreeShared())

	class, err := f.GetTreeClass(1)
	require.NoError(t, err)
	assert.Equal(t, eclass.Quad, class)

	count, err := f.GetTreeElementCount(0)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	_, err = f.GetTreeElement(0, 99)
	assert.Error(t, err)

	_, err = f.GetTreeClass(5)
	assert.ErrorIs(t, err, ErrInvalidLocalTree)
}

func TestCmeshLtreeidToLtreeid(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	level := 0
	elements := [][]scheme.Element{uniformRefine(t, sch, level), uniformRefine(t, sch, level)}
	f, err := Build(m, sch, level, elements, false, false)
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.CmeshLtreeidToLtreeid(0))
	assert.Equal(t, int64(1), f.CmeshLtreeidToLtreeid(1))
	assert.Equal(t, NotLocal, f.CmeshLtreeidToLtreeid(2))
	assert.Equal(t, NotLocal, f.CmeshLtreeidToLtreeid(-1))
}

func TestElementHalfFaceNeighborsWithinTree(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	level := 1
	elements := [][]scheme.Element{uniformRefine(t, sch, level), uniformRefine(t, sch, level)}
	f, err := Build(m, sch, level, elements, false, false)
	require.NoError(t, err)

	nw := sch.Child(sch.NewRoot(), 0)
	neighborTree, neighbors, err := f.ElementHalfFaceNeighbors(0, nw, 1) // +x, within tree
	require.NoError(t, err)
	assert.Equal(t, int64(0), neighborTree)
	require.Len(t, neighbors, 1)
	assert.Equal(t, sch.Child(sch.NewRoot(), 1), neighbors[0])
}

func TestElementHalfFaceNeighborsCrossesTreeBoundary(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	level := 1
	elements := [][]scheme.Element{uniformRefine(t, sch, level), uniformRefine(t, sch, level)}
	f, err := Build(m, sch, level, elements, false, false)
	require.NoError(t, err)

	ne := sch.Child(sch.NewRoot(), 1) // east half of tree 0, at the tree's +x boundary
	neighborTree, neighbors, err := f.ElementHalfFaceNeighbors(0, ne, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), neighborTree)
	require.Len(t, neighbors, 1)
}

func TestElementHalfFaceNeighborsAtDomainBoundary(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	level := 0
	elements := [][]scheme.Element{uniformRefine(t, sch, level), uniformRefine(t, sch, level)}
	f, err := Build(m, sch, level, elements, false, false)
	require.NoError(t, err)

	root := sch.NewRoot()
	neighborTree, neighbors, err := f.ElementHalfFaceNeighbors(0, root, 2) // -y, never joined
	require.NoError(t, err)
	assert.Equal(t, int64(-1), neighborTree)
	assert.Nil(t, neighbors)
}

func TestElementFindOwnerSingleRankOwnsEverything(t *testing.T) {
	m := twoQuadMesh(t)
	sch, err := scheme.NewMorton(eclass.Quad)
	require.NoError(t, err)
	level := 1
	elements := [][]scheme.Element{uniformRefine(t, sch, level), uniformRefine(t, sch, level)}
	f, err := Build(m, sch, level, elements, false, false)
	require.NoError(t, err)

	for _, e := range elements[1] {
		owner, err := f.ElementFindOwner(1, e, eclass.Quad)
		require.NoError(t, err)
		assert.Equal(t, 0, owner)
	}
}
