package cmesh

import (
	"errors"
	"testing"

	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicatedSingleTriangleMesh(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetNumTrees(1))
	require.NoError(t, m.SetTree(0, eclass.Triangle))
	require.NoError(t, m.Commit())

	assert.Equal(t, 2, m.Dimension())
	assert.Equal(t, int64(1), m.NumTrees())
	assert.Equal(t, int64(1), m.NumLocalTrees())
	assert.Equal(t, int64(1), m.NumTreesPerClass(eclass.Triangle))
	class, err := m.TreeClass(0)
	require.NoError(t, err)
	assert.Equal(t, eclass.Triangle, class)
}

func TestHypercubeFromTetrahedra(t *testing.T) {
	m, err := NewHypercube(eclass.Tet, mpicomm.World(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(6), m.NumTrees())
	assert.Equal(t, 3, m.Dimension())
	assert.Equal(t, int64(6), m.NumTreesPerClass(eclass.Tet))
	for i := int64(0); i < 6; i++ {
		class, err := m.TreeClass(i)
		require.NoError(t, err)
		assert.Equal(t, eclass.Tet, class)
	}
}

func TestCanonicalConstructors(t *testing.T) {
	t.Run("triangle", func(t *testing.T) {
		m, err := NewTriangle(mpicomm.World(), false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.NumTrees())
	})
	t.Run("tet", func(t *testing.T) {
		m, err := NewTet(mpicomm.World(), false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.NumTrees())
	})
	t.Run("quad", func(t *testing.T) {
		m, err := NewQuad(mpicomm.World(), false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.NumTrees())
	})
	t.Run("hex", func(t *testing.T) {
		m, err := NewHex(mpicomm.World(), false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.NumTrees())
	})
}

func TestSetPartitionedReplicatedIsSetNumTrees(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetPartitioned(false, 7, 0, 0))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	for i := int64(1); i < 7; i++ {
		require.NoError(t, m.SetTree(i, eclass.Quad))
	}
	require.NoError(t, m.Commit())
	assert.Equal(t, int64(7), m.NumTrees())
	assert.Equal(t, int64(7), m.NumLocalTrees())
}

func TestDimensionMismatchRejected(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetNumTrees(2))
	require.NoError(t, m.SetTree(0, eclass.Quad)) // dimension 2
	err := m.SetTree(1, eclass.Tet)                // dimension 3
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestDoubleSetRejected(t *testing.T) {
	m := New()
	require.NoError(t, m.SetNumTrees(1))
	err := m.SetNumTrees(2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDoubleSet))
}

func TestCommitBeforeTreesIsError(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	err := m.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestMutationAfterCommitRejected(t *testing.T) {
	m, err := NewTriangle(mpicomm.World(), false)
	require.NoError(t, err)
	err = m.SetTree(1, eclass.Quad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitted))
	err = m.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitted))
}

func TestTreeIDIsValidIncludesFirstTreeWhenPartitioned(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetPartitioned(true, 10, 3, 0))
	require.NoError(t, m.SetNumTrees(4)) // trees 3,4,5,6
	for i := int64(3); i < 7; i++ {
		require.NoError(t, m.SetTree(i, eclass.Quad))
	}
	require.NoError(t, m.Commit())

	assert.True(t, m.TreeIDIsValid(3), "first_tree itself must be valid (spec §9 bug fix)")
	assert.True(t, m.TreeIDIsValid(6))
	assert.False(t, m.TreeIDIsValid(2))
	assert.False(t, m.TreeIDIsValid(7))
	assert.Equal(t, int64(0), m.TreeIndex(3))
	assert.Equal(t, int64(3), m.TreeIndex(6))
}

func TestJoinFacesNotImplemented(t *testing.T) {
	m := New()
	require.NoError(t, m.SetNumTrees(2))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	require.NoError(t, m.SetTree(1, eclass.Quad))
	err := m.JoinFaces(0, 1, 0, 1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
}

func TestSetGhostTreeAndGhostClass(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetPartitioned(true, 2, 0, 1))
	require.NoError(t, m.SetNumTrees(1))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	require.NoError(t, m.SetGhostTree(0, 1, eclass.Triangle))
	require.NoError(t, m.Commit())

	assert.Equal(t, int64(1), m.NumGhosts())
	class, err := m.GhostClass(0)
	require.NoError(t, err)
	assert.Equal(t, eclass.Triangle, class)
}

func TestGhostClassRejectsOutOfRangeIndex(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetPartitioned(true, 1, 0, 0))
	require.NoError(t, m.SetNumTrees(1))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	require.NoError(t, m.Commit())

	_, err := m.GhostClass(0)
	require.Error(t, err)
}

func TestSetGhostTreeRejectsAfterCommit(t *testing.T) {
	m := New()
	require.NoError(t, m.SetMPIComm(mpicomm.World(), false))
	require.NoError(t, m.SetPartitioned(true, 2, 0, 1))
	require.NoError(t, m.SetNumTrees(1))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	require.NoError(t, m.Commit())

	err := m.SetGhostTree(0, 1, eclass.Quad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitted))
}

func TestRefcount(t *testing.T) {
	m := New()
	assert.Equal(t, 1, m.Refcount())
	m.Ref()
	m.Ref()
	assert.Equal(t, 3, m.Refcount())
	assert.False(t, m.Unref())
	assert.False(t, m.Unref())
	assert.True(t, m.Unref())
}

func TestEncodeDecodeTreeToFace(t *testing.T) {
	const orientations = 3
	for face := 0; face < 6; face++ {
		for orientation := 0; orientation < orientations; orientation++ {
			code := EncodeTreeToFace(face, orientation, orientations)
			gotFace, gotOrientation := DecodeTreeToFace(code, orientations)
			assert.Equal(t, face, gotFace)
			assert.Equal(t, orientation, gotOrientation)
		}
	}
}
