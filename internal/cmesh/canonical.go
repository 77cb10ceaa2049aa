package cmesh

import (
	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
)

// newSingleTree builds, sets and commits a replicated one-tree mesh of the
// given class. Mirrors the upstream t8_cmesh_new_tri/tet/quad/hex
// constructors (original_source/t8_cmesh.c lines 442-496).
func newSingleTree(ec eclass.Class, comm mpicomm.Comm, doDup bool) (*CoarseMesh, error) {
	m := New()
	if err := m.SetMPIComm(comm, doDup); err != nil {
		return nil, err
	}
	if err := m.SetNumTrees(1); err != nil {
		return nil, err
	}
	if err := m.SetTree(0, ec); err != nil {
		return nil, err
	}
	if err := m.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewTriangle returns a committed, replicated, single-triangle mesh.
func NewTriangle(comm mpicomm.Comm, doDup bool) (*CoarseMesh, error) {
	return newSingleTree(eclass.Triangle, comm, doDup)
}

// NewTet returns a committed, replicated, single-tetrahedron mesh.
func NewTet(comm mpicomm.Comm, doDup bool) (*CoarseMesh, error) {
	return newSingleTree(eclass.Tet, comm, doDup)
}

// NewQuad returns a committed, replicated, single-quad mesh.
func NewQuad(comm mpicomm.Comm, doDup bool) (*CoarseMesh, error) {
	return newSingleTree(eclass.Quad, comm, doDup)
}

// NewHex returns a committed, replicated, single-hex mesh.
func NewHex(comm mpicomm.Comm, doDup bool) (*CoarseMesh, error) {
	return newSingleTree(eclass.Hex, comm, doDup)
}

// NewHypercube returns a committed, replicated mesh tiling a hypercube of
// the given element class's dimension, using the minimal number of trees
// of that class (eclass.HypercubeTreeCount).
func NewHypercube(ec eclass.Class, comm mpicomm.Comm, doDup bool) (*CoarseMesh, error) {
	m := New()
	if err := m.SetMPIComm(comm, doDup); err != nil {
		return nil, err
	}
	n := eclass.HypercubeTreeCount[ec]
	if err := m.SetNumTrees(int64(n)); err != nil {
		return nil, err
	}
	for i := int64(0); i < int64(n); i++ {
		if err := m.SetTree(i, ec); err != nil {
			return nil, err
		}
	}
	if err := m.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}
