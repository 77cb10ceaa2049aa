// Package eclass defines the closed set of reference-cell element classes
// shared by the coarse mesh and the refined forest built on top of it.
package eclass

import "fmt"

// Class is a tagged variant over the element classes a tree, or a refined
// element, can have. The zero value is Vertex.
type Class uint8

const (
	Vertex Class = iota
	Line
	Quad
	Triangle
	Hex
	Tet
	Prism
	Pyramid

	numClasses
)

var dimensions = [numClasses]int{
	Vertex:   0,
	Line:     1,
	Quad:     2,
	Triangle: 2,
	Hex:      3,
	Tet:      3,
	Prism:    3,
	Pyramid:  3,
}

var numFaces = [numClasses]int{
	Vertex:   0,
	Line:     2,
	Quad:     4,
	Triangle: 3,
	Hex:      6,
	Tet:      4,
	Prism:    5,
	Pyramid:  5,
}

var names = [numClasses]string{
	Vertex:   "vertex",
	Line:     "line",
	Quad:     "quad",
	Triangle: "triangle",
	Hex:      "hex",
	Tet:      "tet",
	Prism:    "prism",
	Pyramid:  "pyramid",
}

// HypercubeTreeCount is the minimal number of trees of the given class
// needed to tile a hypercube of that class's dimension.
var HypercubeTreeCount = [numClasses]int{
	Vertex:   1,
	Line:     1,
	Quad:     1,
	Triangle: 2,
	Hex:      1,
	Tet:      6,
	Prism:    2,
	Pyramid:  3,
}

// Valid reports whether c is one of the eight known element classes.
func (c Class) Valid() bool {
	return c < numClasses
}

// Dimension returns the topological dimension of the class, e.g., 2 for
// Quad and Triangle, 3 for Hex, Tet, Prism and Pyramid.
func (c Class) Dimension() int {
	if !c.Valid() {
		return -1
	}
	return dimensions[c]
}

// NumFaces returns the number of faces of one reference cell of this class.
func (c Class) NumFaces() int {
	if !c.Valid() {
		return 0
	}
	return numFaces[c]
}

// String implements fmt.Stringer.
func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("eclass.Class(%d)", uint8(c))
	}
	return names[c]
}
