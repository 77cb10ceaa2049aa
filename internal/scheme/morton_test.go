package scheme

import (
	"testing"

	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMortonRejectsUnsupportedEclass(t *testing.T) {
	_, err := NewMorton(eclass.Triangle)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedEclass)
}

func TestQuadRefinementAndLinearID(t *testing.T) {
	s, err := NewMorton(eclass.Quad)
	require.NoError(t, err)

	root := s.NewRoot()
	assert.Equal(t, 0, s.Level(root))

	children := make([]Element, s.NumChildren())
	for i := range children {
		children[i] = s.Child(root, i)
	}
	assert.Len(t, children, 4)

	ids := make(map[uint64]bool)
	for _, c := range children {
		assert.Equal(t, 1, s.Level(c))
		ids[s.LinearID(c, 1)] = true
	}
	assert.Len(t, ids, 4, "children must have distinct linear ids")
}

func TestLinearIDIsStableUnderAncestorTruncation(t *testing.T) {
	s, err := NewMorton(eclass.Quad)
	require.NoError(t, err)
	root := s.NewRoot()
	child := s.Child(root, 3)
	grandchild := s.Child(child, 2)
	assert.Equal(t, s.LinearID(child, 1), s.LinearID(grandchild, 1))
	assert.Equal(t, s.LinearID(root, 0), s.LinearID(grandchild, 0))
}

func TestNeighborAtTreeBoundaryIsNotOK(t *testing.T) {
	s, err := NewMorton(eclass.Quad)
	require.NoError(t, err)
	root := s.NewRoot()
	_, ok := s.Neighbor(root, 0)
	assert.False(t, ok, "the single root element has no interior neighbor")
}

func TestNeighborWithinTree(t *testing.T) {
	s, err := NewMorton(eclass.Quad)
	require.NoError(t, err)
	root := s.NewRoot()
	// Split into a 2x2 grid and check the four elements see each other.
	nw := s.Child(root, 0) // X=0,Y=0
	ne := s.Child(root, 1) // X=1,Y=0
	sw := s.Child(root, 2) // X=0,Y=1
	se := s.Child(root, 3) // X=1,Y=1

	got, ok := nw.neighborViaScheme(s, 1) // +x face
	require.True(t, ok)
	assert.Equal(t, ne, got)

	got, ok = nw.neighborViaScheme(s, 3) // +y face
	require.True(t, ok)
	assert.Equal(t, sw, got)

	_, ok = se.neighborViaScheme(s, 1) // +x at tree boundary
	assert.False(t, ok)
}

// neighborViaScheme is a tiny test helper so assertions read
// subject-first; it just forwards to Scheme.Neighbor.
func (e Element) neighborViaScheme(s *MortonScheme, face int) (Element, bool) {
	return s.Neighbor(e, face)
}

func TestHexDimension(t *testing.T) {
	s, err := NewMorton(eclass.Hex)
	require.NoError(t, err)
	assert.Equal(t, 8, s.NumChildren())
	assert.Equal(t, eclass.Hex, s.Eclass())
}

func TestNumFaceChildrenIsAlwaysOne(t *testing.T) {
	s, err := NewMorton(eclass.Quad)
	require.NoError(t, err)
	root := s.NewRoot()
	for face := 0; face < 4; face++ {
		assert.Equal(t, 1, s.NumFaceChildren(root, face))
	}
}
