// Package meshdesc parses the line-oriented text format cmd/meshctl and
// cmd/meshd use to describe a coarse mesh (trees and their face joins)
// and assembles a committed CoarseMesh plus a single-root-element-per-tree
// Forest for one rank, shared by both commands exactly the way the
// teacher shares internal/tree between cmd/muscle and cmd/musclefs.
//
// A description is a sequence of lines of two kinds, blank lines and
// lines starting with "#" ignored:
//
//	tree <id> <eclass>
//	face <treeID> <face> <neighborTreeID> <neighborFace> <neighborEclass> <orientation> <orientations>
//
// Each face line records one direction of a join; a two-way join between
// trees needs one line per side, matching how CoarseMesh.SetFaceNeighbor
// itself only ever records one side (spec §9's JoinFaces Open Question).
package meshdesc

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nicolagi/t8mesh/internal/cmesh"
	"github.com/nicolagi/t8mesh/internal/eclass"
	"github.com/nicolagi/t8mesh/internal/forest"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	"github.com/nicolagi/t8mesh/internal/partition"
	"github.com/nicolagi/t8mesh/internal/scheme"
)

type baseErr string

func (e baseErr) Error() string { return string(e) }

// ErrNoTrees is returned by Parse when the description has no tree lines.
const ErrNoTrees = baseErr("meshdesc: description has no trees")

func errorf(method, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/t8mesh/internal/meshdesc."+method+": "+format, a...)
}

// TreeSpec is one "tree" line.
type TreeSpec struct {
	ID     int64
	Eclass eclass.Class
}

// FaceSpec is one "face" line.
type FaceSpec struct {
	TreeID         int64
	Face           int
	NeighborTreeID int64
	NeighborFace   int
	NeighborEclass eclass.Class
	Orientation    int
	Orientations   int
}

// Spec is a parsed mesh description: trees sorted by id, plus the face
// joins that apply to them.
type Spec struct {
	Trees []TreeSpec
	Faces []FaceSpec
}

// NumTrees returns the global tree count.
func (s *Spec) NumTrees() int64 { return int64(len(s.Trees)) }

var classByName = func() map[string]eclass.Class {
	m := make(map[string]eclass.Class)
	for c := eclass.Vertex; c <= eclass.Pyramid; c++ {
		m[c.String()] = c
	}
	return m
}()

func parseEclass(method, s string) (eclass.Class, error) {
	ec, ok := classByName[s]
	if !ok {
		return 0, errorf(method, "unrecognized element class %q", s)
	}
	return ec, nil
}

// Parse reads a mesh description.
func Parse(r io.Reader) (*Spec, error) {
	const method = "Parse"
	spec := &Spec{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "tree":
			if len(fields) != 3 {
				return nil, errorf(method, "line %d: want \"tree ID ECLASS\", got %q", lineNo, line)
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, errorf(method, "line %d: tree id: %v", lineNo, err)
			}
			ec, err := parseEclass(method, fields[2])
			if err != nil {
				return nil, errorf(method, "line %d: %v", lineNo, err)
			}
			spec.Trees = append(spec.Trees, TreeSpec{ID: id, Eclass: ec})
		case "face":
			if len(fields) != 8 {
				return nil, errorf(method, "line %d: want \"face TREE FACE NEIGHBOR_TREE NEIGHBOR_FACE NEIGHBOR_ECLASS ORIENTATION ORIENTATIONS\", got %q", lineNo, line)
			}
			fs, err := parseFaceSpec(method, fields[1:])
			if err != nil {
				return nil, errorf(method, "line %d: %v", lineNo, err)
			}
			spec.Faces = append(spec.Faces, fs)
		default:
			return nil, errorf(method, "line %d: unrecognized line kind %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errorf(method, "%v", err)
	}
	if len(spec.Trees) == 0 {
		return nil, errorf(method, "%w", ErrNoTrees)
	}
	sort.Slice(spec.Trees, func(i, j int) bool { return spec.Trees[i].ID < spec.Trees[j].ID })
	return spec, nil
}

func parseFaceSpec(method string, fields []string) (FaceSpec, error) {
	var fs FaceSpec
	ints := make([]int64, 0, 4)
	for _, f := range []string{fields[0], fields[1], fields[2], fields[3]} {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return fs, fmt.Errorf("%s: %v", method, err)
		}
		ints = append(ints, n)
	}
	ec, err := parseEclass(method, fields[4])
	if err != nil {
		return fs, err
	}
	orientation, err := strconv.Atoi(fields[5])
	if err != nil {
		return fs, fmt.Errorf("%s: orientation: %v", method, err)
	}
	orientations, err := strconv.Atoi(fields[6])
	if err != nil {
		return fs, fmt.Errorf("%s: orientations: %v", method, err)
	}
	return FaceSpec{
		TreeID:         ints[0],
		Face:           int(ints[1]),
		NeighborTreeID: ints[2],
		NeighborFace:   int(ints[3]),
		NeighborEclass: ec,
		Orientation:    orientation,
		Orientations:   orientations,
	}, nil
}

// RankShare is the contiguous, whole-tree range of the description
// assigned to one rank, found by evaluating the uniform partitioner
// (internal/partition) at refinement level 0: with exactly one child per
// tree at that level, UniformBounds degenerates to a partition of whole
// trees, never splitting one across ranks.
type RankShare struct {
	FirstTree int64
	NumTrees  int64
}

// Share computes rank's contiguous tree range out of size ranks.
func Share(spec *Spec, dimension, rank, size int) (RankShare, error) {
	const method = "Share"
	bounds, err := partition.BoundsForRank(spec.NumTrees(), dimension, 0, rank, size)
	if err != nil {
		return RankShare{}, errorf(method, "%v", err)
	}
	if bounds.Empty {
		return RankShare{FirstTree: bounds.FirstLocalTree, NumTrees: 0}, nil
	}
	return RankShare{
		FirstTree: bounds.FirstLocalTree,
		NumTrees:  bounds.LastLocalTree - bounds.FirstLocalTree + int64(bounds.ChildInTreeEnd),
	}, nil
}

// Build assembles and commits a CoarseMesh for one rank out of a
// cluster of the given size, holding exactly the trees Share computes
// for rank, with every face line touching one of those trees applied.
// size == 1 builds a non-partitioned, single-rank mesh holding every
// tree in the description.
func Build(spec *Spec, sch scheme.Scheme, comm mpicomm.Comm, doDup bool, rank, size int) (*cmesh.CoarseMesh, error) {
	const method = "Build"
	m := cmesh.New()
	if err := m.SetMPIComm(comm, doDup); err != nil {
		return nil, errorf(method, "%v", err)
	}

	var firstTree, numLocal int64
	if size <= 1 {
		if err := m.SetPartitioned(false, spec.NumTrees(), 0, 0); err != nil {
			return nil, errorf(method, "%v", err)
		}
		firstTree, numLocal = 0, spec.NumTrees()
	} else {
		share, err := Share(spec, sch.Eclass().Dimension(), rank, size)
		if err != nil {
			return nil, errorf(method, "%v", err)
		}
		if err := m.SetPartitioned(true, spec.NumTrees(), share.FirstTree, 0); err != nil {
			return nil, errorf(method, "%v", err)
		}
		if err := m.SetNumTrees(share.NumTrees); err != nil {
			return nil, errorf(method, "%v", err)
		}
		firstTree, numLocal = share.FirstTree, share.NumTrees
	}
	lastTree := firstTree + numLocal // exclusive

	for _, t := range spec.Trees {
		if t.ID < firstTree || t.ID >= lastTree {
			continue
		}
		if err := m.SetTree(t.ID, t.Eclass); err != nil {
			return nil, errorf(method, "tree %d: %v", t.ID, err)
		}
	}
	for _, f := range spec.Faces {
		if f.TreeID < firstTree || f.TreeID >= lastTree {
			continue
		}
		code := cmesh.EncodeTreeToFace(f.NeighborFace, f.Orientation, f.Orientations)
		if err := m.SetFaceNeighbor(f.TreeID, f.Face, f.NeighborTreeID, f.NeighborEclass, code); err != nil {
			return nil, errorf(method, "face %d/%d: %v", f.TreeID, f.Face, err)
		}
	}
	if err := m.Commit(); err != nil {
		return nil, errorf(method, "%v", err)
	}
	return m, nil
}

// BuildForest wraps Build's CoarseMesh in a Forest holding one level-0
// root element per local tree, which is all internal/ghost's algorithm
// needs to exercise cross-rank face discovery. Since Build never splits
// a tree's children across ranks (see RankShare), neither the first nor
// last local tree is ever shared with a neighboring rank.
func BuildForest(spec *Spec, sch scheme.Scheme, comm mpicomm.Comm, doDup bool, rank, size int) (*forest.Forest, *cmesh.CoarseMesh, error) {
	const method = "BuildForest"
	m, err := Build(spec, sch, comm, doDup, rank, size)
	if err != nil {
		return nil, nil, errorf(method, "%v", err)
	}
	elementsPerTree := make([][]scheme.Element, m.NumLocalTrees())
	for i := range elementsPerTree {
		elementsPerTree[i] = []scheme.Element{{}}
	}
	f, err := forest.Build(m, sch, 0, elementsPerTree, false, false)
	if err != nil {
		return nil, nil, errorf(method, "%v", err)
	}
	return f, m, nil
}
