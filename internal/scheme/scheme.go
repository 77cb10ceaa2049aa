// Package scheme implements the element-scheme collaborator described in
// spec §6: the polymorphic, per-eclass object that knows how to size,
// allocate, copy and identify refined elements. The forest and
// ghost-layer builder only ever go through the Scheme interface; this
// package additionally provides one concrete scheme (MortonScheme) for
// the tensor-product classes (Quad, Hex) good enough to exercise and
// test that contract end to end.
package scheme

import "github.com/nicolagi/t8mesh/internal/eclass"

// Element is an opaque handle to one refined element. For MortonScheme
// the zero value is the level-0 root element (the value NewRoot returns
// and New fills its slices with).
//
// Concrete schemes are free to interpret Level/X/Y/Z however they like;
// MortonScheme uses them as the element's refinement level and its
// integer grid coordinates at that level.
type Element struct {
	Level   uint8
	X, Y, Z uint32
}

// Scheme is the per-eclass polymorphic object the forest and ghost-layer
// builder consume (spec §6). All operations are total for elements this
// scheme produced.
type Scheme interface {
	// Eclass returns the element class this scheme refines.
	Eclass() eclass.Class

	// ElementSize returns the byte size of one refined element, as the
	// source tracks it for allocation purposes. Go schemes have no use
	// for this beyond parity with the upstream contract; nothing in this
	// module calls it.
	ElementSize() int

	// Level returns the refinement level of elem.
	Level(elem Element) int

	// LinearID returns elem's position in the scheme's space-filling
	// curve order, truncated to its ancestor at the given level (which
	// must be <= elem's own level).
	LinearID(elem Element, level int) uint64

	// NumFaces returns the number of faces of elem (fixed per eclass,
	// but exposed per-element for interface parity with the source).
	NumFaces(elem Element) int

	// NumFaceChildren returns how many same-or-finer neighbors are
	// needed to cover the other side of the given face. MortonScheme
	// always returns 1: it only ever builds uniformly refined forests,
	// so the other side of any face is always exactly one element at
	// the same level (see MortonScheme).
	NumFaceChildren(elem Element, face int) int

	// New allocates n fresh, zero-valued elements.
	New(n int) []Element

	// Destroy releases elements allocated by New. MortonScheme's
	// elements carry no external resources, so this is a no-op; it
	// exists so callers that resize half-face-neighbor buffers (spec
	// §4.3) can call it uniformly regardless of scheme.
	Destroy(elems []Element)

	// Copy returns an independent copy of src.
	Copy(src Element) Element
}
