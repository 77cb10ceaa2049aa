package partition

import (
	"math/big"
	"testing"
	"testing/quick"

	"github.com/nicolagi/t8mesh/internal/cmesh"
	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meshAtRank(t *testing.T, numTrees int64, ec eclass.Class, rank, size int) *cmesh.CoarseMesh {
	t.Helper()
	m := cmesh.New()
	require.NoError(t, m.SetMPIComm(rankComm{rank: rank, size: size}, false))
	require.NoError(t, m.SetNumTrees(numTrees))
	for i := int64(0); i < numTrees; i++ {
		require.NoError(t, m.SetTree(i, ec))
	}
	require.NoError(t, m.Commit())
	return m
}

// rankComm implements mpicomm.Comm with a fixed rank and size, so tests
// can exercise UniformBounds from every rank's point of view without a
// real cluster.
type rankComm struct {
	rank, size int
}

func (c rankComm) Dup() (mpicomm.Comm, error) { panic("unused: doDup is false in these tests") }
func (c rankComm) Size() (int, error)         { return c.size, nil }
func (c rankComm) Rank() (int, error)         { return c.rank, nil }
func (c rankComm) Free() error                { return nil }

func TestUniformBoundsWorkedExample(t *testing.T) {
	// spec §8 example 3: 2D, 4 trees, level 2, 3 ranks.
	// c = 2^(2*2) = 16, G = 64. Ranks get [0,21), [21,42), [42,64).
	const numTrees = 4
	const level = 2
	const size = 3

	m0 := meshAtRank(t, numTrees, eclass.Quad, 0, size)
	b0, err := UniformBounds(m0, level)
	require.NoError(t, err)
	assert.Equal(t, Bounds{FirstLocalTree: 0, ChildInTreeBegin: 0, LastLocalTree: 1, ChildInTreeEnd: 5}, b0)

	m2 := meshAtRank(t, numTrees, eclass.Quad, 2, size)
	b2, err := UniformBounds(m2, level)
	require.NoError(t, err)
	assert.Equal(t, Bounds{FirstLocalTree: 2, ChildInTreeBegin: 10, LastLocalTree: 3, ChildInTreeEnd: 16}, b2)
}

func TestUniformBoundsCoverageAndNoOverlap(t *testing.T) {
	f := func(numTreesSeed uint8, levelSeed uint8, sizeSeed uint8) bool {
		numTrees := int64(numTreesSeed%8) + 1
		level := int(levelSeed % 4)
		size := int(sizeSeed%6) + 1

		c := new(big.Int).Lsh(big.NewInt(1), uint(2*level)) // quads: dimension 2
		g := new(big.Int).Mul(big.NewInt(numTrees), c)

		covered := make([]bool, g.Int64())
		for rank := 0; rank < size; rank++ {
			m := meshAtRank(t, numTrees, eclass.Quad, rank, size)
			b, err := UniformBounds(m, level)
			if err != nil {
				t.Fatal(err)
			}
			if b.Empty {
				continue
			}
			first := b.FirstLocalTree*c.Int64() + b.ChildInTreeBegin
			last := b.LastLocalTree*c.Int64() + b.ChildInTreeEnd // exclusive
			for child := first; child < last; child++ {
				if covered[child] {
					t.Logf("child %d covered twice", child)
					return false
				}
				covered[child] = true
			}
		}
		for child, ok := range covered {
			if !ok {
				t.Logf("child %d not covered", child)
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

func TestUniformBoundsRejectsPyramids(t *testing.T) {
	m := meshAtRank(t, 1, eclass.Pyramid, 0, 1)
	_, err := UniformBounds(m, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedEclass)
}

func TestUniformBoundsRejectsHybridEclasses(t *testing.T) {
	// Quad and Triangle share dimension 2, so CoarseMesh.SetTree accepts
	// mixing them, but they do not refine into the same child count per
	// level; UniformBounds has no table to tell them apart and rejects
	// the mix outright.
	m := cmesh.New()
	require.NoError(t, m.SetMPIComm(rankComm{rank: 0, size: 1}, false))
	require.NoError(t, m.SetNumTrees(2))
	require.NoError(t, m.SetTree(0, eclass.Quad))
	require.NoError(t, m.SetTree(1, eclass.Triangle))
	require.NoError(t, m.Commit())

	_, err := UniformBounds(m, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHybridUnsupported)
}

func TestUniformBoundsRejectsNegativeLevel(t *testing.T) {
	m := meshAtRank(t, 1, eclass.Quad, 0, 1)
	_, err := UniformBounds(m, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNegativeLevel)
}

func TestUniformBoundsSingleRankCoversEverything(t *testing.T) {
	m := meshAtRank(t, 3, eclass.Hex, 0, 1)
	b, err := UniformBounds(m, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.FirstLocalTree)
	assert.Equal(t, int64(0), b.ChildInTreeBegin)
	assert.Equal(t, int64(2), b.LastLocalTree)
	assert.Equal(t, int64(8), b.ChildInTreeEnd) // 2^(3*1) = 8 children in last tree
	assert.False(t, b.Empty)
}
