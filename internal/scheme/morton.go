package scheme

import "github.com/nicolagi/t8mesh/internal/eclass"

// baseErr mirrors the sentinel error pattern used throughout this module
// (see internal/cmesh/error.go).
type baseErr string

func (e baseErr) Error() string { return string(e) }

// ErrUnsupportedEclass is returned by NewMorton for any class other than
// Quad or Hex: the tensor-product Morton order used here is only
// well-defined for those two.
const ErrUnsupportedEclass = baseErr("scheme: morton scheme only supports quad and hex")

// MortonScheme refines Quad or Hex trees uniformly, identifying each
// element by its integer grid coordinates at its level and ordering
// elements by Morton (Z-order) code - the bit-interleaving of those
// coordinates. It is the minimal concrete scheme needed to exercise the
// forest and ghost-layer builder; it does not support adaptive
// (non-uniform) refinement, so NumFaceChildren is always 1.
type MortonScheme struct {
	ec eclass.Class
}

// NewMorton returns a MortonScheme for the given class, which must be
// Quad or Hex.
func NewMorton(ec eclass.Class) (*MortonScheme, error) {
	if ec != eclass.Quad && ec != eclass.Hex {
		return nil, ErrUnsupportedEclass
	}
	return &MortonScheme{ec: ec}, nil
}

func (s *MortonScheme) Eclass() eclass.Class { return s.ec }

func (s *MortonScheme) ElementSize() int {
	// Level plus up to 3 coordinates, as stored in Element.
	return 1 + 4*s.ec.Dimension()
}

func (s *MortonScheme) Level(elem Element) int { return int(elem.Level) }

func (s *MortonScheme) LinearID(elem Element, level int) uint64 {
	shift := uint(elem.Level) - uint(level)
	x, y, z := elem.X>>shift, elem.Y>>shift, elem.Z>>shift
	id := interleave2(x, y)
	if s.ec == eclass.Hex {
		id = interleave3(x, y, z)
	}
	return id
}

func (s *MortonScheme) NumFaces(elem Element) int { return s.ec.NumFaces() }

func (s *MortonScheme) NumFaceChildren(elem Element, face int) int { return 1 }

func (s *MortonScheme) New(n int) []Element { return make([]Element, n) }

func (s *MortonScheme) Destroy(elems []Element) {}

func (s *MortonScheme) Copy(src Element) Element { return src }

// NewRoot returns the single level-0 element of a tree (covering the
// whole reference cell).
func (s *MortonScheme) NewRoot() Element { return Element{Level: 0} }

// Child returns the child of elem at the given index (0..2^dimension-1),
// its bits selecting +/- along each axis. Used by tests and demos to
// build a uniformly refined forest, not by the ghost-layer builder
// itself.
func (s *MortonScheme) Child(elem Element, index int) Element {
	child := Element{
		Level: elem.Level + 1,
		X:     elem.X << 1,
		Y:     elem.Y << 1,
		Z:     elem.Z << 1,
	}
	if index&1 != 0 {
		child.X |= 1
	}
	if index&2 != 0 {
		child.Y |= 1
	}
	if s.ec == eclass.Hex && index&4 != 0 {
		child.Z |= 1
	}
	return child
}

// NumChildren returns 2^dimension.
func (s *MortonScheme) NumChildren() int { return 1 << uint(s.ec.Dimension()) }

// Neighbor returns elem's same-level neighbor across the given face,
// along with whether that neighbor still lies within the tree (false at
// a tree-boundary face, where the forest must consult the coarse mesh's
// face-neighbor table instead). Face numbering: 0/1 = -x/+x, 2/3 =
// -y/+y, 4/5 = -z/+z.
func (s *MortonScheme) Neighbor(elem Element, face int) (Element, bool) {
	n := elem
	extent := int64(1) << uint(elem.Level)
	switch face {
	case 0:
		if elem.X == 0 {
			return Element{}, false
		}
		n.X = elem.X - 1
	case 1:
		if int64(elem.X)+1 >= extent {
			return Element{}, false
		}
		n.X = elem.X + 1
	case 2:
		if elem.Y == 0 {
			return Element{}, false
		}
		n.Y = elem.Y - 1
	case 3:
		if int64(elem.Y)+1 >= extent {
			return Element{}, false
		}
		n.Y = elem.Y + 1
	case 4:
		if elem.Z == 0 {
			return Element{}, false
		}
		n.Z = elem.Z - 1
	case 5:
		if int64(elem.Z)+1 >= extent {
			return Element{}, false
		}
		n.Z = elem.Z + 1
	}
	return n, true
}

// interleave2 bit-interleaves two 32-bit-range coordinates into a
// Morton code, y occupying the odd bit positions.
func interleave2(x, y uint32) uint64 {
	return spread(uint64(x)) | (spread(uint64(y)) << 1)
}

// interleave3 bit-interleaves three coordinates, used for Hex.
func interleave3(x, y, z uint32) uint64 {
	return spread3(uint64(x)) | (spread3(uint64(y)) << 1) | (spread3(uint64(z)) << 2)
}

// spread inserts a 0 bit between every bit of v (for 2-way interleave),
// supporting up to 32 significant bits of input.
func spread(v uint64) uint64 {
	v &= 0xFFFFFFFF
	v = (v | (v << 16)) & 0x0000FFFF0000FFFF
	v = (v | (v << 8)) & 0x00FF00FF00FF00FF
	v = (v | (v << 4)) & 0x0F0F0F0F0F0F0F0F
	v = (v | (v << 2)) & 0x3333333333333333
	v = (v | (v << 1)) & 0x5555555555555555
	return v
}

// spread3 inserts two 0 bits between every bit of v (for 3-way
// interleave), supporting up to 21 significant bits of input.
func spread3(v uint64) uint64 {
	v &= 0x1FFFFF
	v = (v | (v << 32)) & 0x1F00000000FFFF
	v = (v | (v << 16)) & 0x1F0000FF0000FF
	v = (v | (v << 8)) & 0x100F00F00F00F00F
	v = (v | (v << 4)) & 0x10C30C30C30C30C3
	v = (v | (v << 2)) & 0x1249249249249249
	return v
}
