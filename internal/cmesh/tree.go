package cmesh

import "github.com/nicolagi/t8mesh/internal/eclass"

// FaceNeighbor describes one face of a Tree: the neighbor tree reached
// across that face, its element class, and the encoded face/orientation
// of the neighbor. A FaceNeighbor that has never been joined (see
// CoarseMesh.JoinFaces) is in the unset state: Set is false and the other
// fields are meaningless.
type FaceNeighbor struct {
	Set             bool
	NeighborTreeID  int64
	NeighborEclass  eclass.Class
	TreeToFaceCode  int
}

// Tree is one reference cell of the coarse mesh.
type Tree struct {
	TreeID        int64
	Eclass        eclass.Class
	FaceNeighbors []FaceNeighbor
}

// EncodeTreeToFace packs a neighbor's face index and orientation into the
// tree_to_face code stored on the joining side. The upstream source
// leaves this encoding unspecified (join_faces is a stub); we fix it here
// as face*orientations+orientation, decodable by DecodeTreeToFace, per
// spec §9's Open Question on join_faces.
func EncodeTreeToFace(face, orientation, orientations int) int {
	return face*orientations + orientation
}

// DecodeTreeToFace is the inverse of EncodeTreeToFace.
func DecodeTreeToFace(code, orientations int) (face, orientation int) {
	return code / orientations, code % orientations
}
