// Package mesh implements the in-memory triangle mesh and the engines that
// operate on it: compression, stitching, normals, smoothing, concatenation
// and multi-resolution chunk assembly.
//
// Vertex and normal components are stored in Z, Y, X order. File formats use
// X, Y, Z; the loaders and serializers reverse the axes at the boundary.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/volmesh/pkg/formats"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// Mesh errors. ErrReleased and ErrNoRepresentation are raised as panics:
// they signal a broken caller contract, not a runtime condition.
var (
	ErrReleased            = errors.New("mesh has been released")
	ErrNoRepresentation    = errors.New("mesh holds no data representation")
	ErrInconsistentNormals = errors.New("mesh normals do not correspond to vertices")
	ErrNoFragment          = errors.New("mesh has no fragment metadata")
)

// DefaultNormalsBatch is the number of faces processed per face-normal batch.
const DefaultNormalsBatch = 50_000

// Fragment describes the spatial chunk a mesh represents, in Z, Y, X order.
type Fragment struct {
	Shape  [3]float64
	Origin [3]float64
}

// Mesh is a triangle mesh with lazily compressed buffers.
//
// A Mesh has a single owner; it is not safe for concurrent use.
type Mesh struct {
	Box      pmath.Box
	Fragment *Fragment // nil unless the mesh is one chunk of a chunked mesh

	// NormalsBatch overrides DefaultNormalsBatch when positive.
	NormalsBatch int
	// Codec overrides the package default Draco codec.
	Codec formats.DracoCodec

	state    state
	released bool
}

// New builds a mesh from Z, Y, X vertices, faces and optional normals. The
// bounding box is computed from the vertices.
func New(vertices []pmath.Vec3, faces [][3]uint32, normals []pmath.Vec3) (*Mesh, error) {
	return NewWithBox(vertices, faces, normals, pmath.BoundsOf(vertices))
}

// NewWithBox is New with an explicit bounding box.
func NewWithBox(vertices []pmath.Vec3, faces [][3]uint32, normals []pmath.Vec3, box pmath.Box) (*Mesh, error) {
	if len(normals) != 0 && len(normals) != len(vertices) {
		return nil, fmt.Errorf("%w: %d normals for %d vertices", ErrInconsistentNormals, len(normals), len(vertices))
	}
	n := uint32(len(vertices))
	for i, f := range faces {
		if f[0] >= n || f[1] >= n || f[2] >= n {
			return nil, fmt.Errorf("%w: face %d %v with %d vertices", formats.ErrFaceIndexRange, i, f, n)
		}
	}
	return &Mesh{
		Box:   box,
		state: &rawState{vertices: vertices, faces: faces, normals: normals},
	}, nil
}

// Empty returns a mesh with no vertices and the sentinel bounding box.
func Empty() *Mesh {
	return &Mesh{Box: pmath.EmptyBox(), state: &rawState{}}
}

// raw returns the uncompressed buffers, decompressing first if needed.
// Every array accessor goes through here.
func (m *Mesh) raw() *rawState {
	if m.released {
		panic(ErrReleased)
	}
	if s, ok := m.state.(*rawState); ok {
		return s
	}
	if err := m.Decompress(); err != nil {
		panic(fmt.Errorf("decompressing mesh: %w", err))
	}
	return m.state.(*rawState)
}

// Vertices returns the Z, Y, X vertex positions. The slice may be modified in place.
func (m *Mesh) Vertices() []pmath.Vec3 {
	return m.raw().vertices
}

// Faces returns the triangle index list. The slice may be modified in place.
func (m *Mesh) Faces() [][3]uint32 {
	return m.raw().faces
}

// Normals returns the per-vertex normals, or an empty slice.
func (m *Mesh) Normals() []pmath.Vec3 {
	return m.raw().normals
}

// SetVertices replaces the vertex list.
func (m *Mesh) SetVertices(v []pmath.Vec3) {
	m.raw().vertices = v
}

// SetFaces replaces the face list.
func (m *Mesh) SetFaces(f [][3]uint32) {
	m.raw().faces = f
}

// SetNormals replaces the normals, which must be empty or match the vertex count.
func (m *Mesh) SetNormals(n []pmath.Vec3) {
	s := m.raw()
	if len(n) != 0 && len(n) != len(s.vertices) {
		panic(fmt.Errorf("%w: %d normals for %d vertices", ErrInconsistentNormals, len(n), len(s.vertices)))
	}
	s.normals = n
}

// DropNormals discards the normals.
func (m *Mesh) DropNormals() {
	m.raw().normals = nil
}

// HasNormals reports whether normals are present.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals()) > 0
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices())
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.Faces())
}

// UncompressedSize returns the byte size of the raw buffers.
func (m *Mesh) UncompressedSize() int {
	s := m.raw()
	return 12*len(s.vertices) + 12*len(s.normals) + 12*len(s.faces)
}

// RecomputeBox resets Box from the current vertices.
func (m *Mesh) RecomputeBox() {
	m.Box = pmath.BoundsOf(m.Vertices())
}

// Rescale multiplies every vertex by factor and recomputes the box. An
// empty mesh keeps its box.
func (m *Mesh) Rescale(factor float32) {
	v := m.Vertices()
	if len(v) == 0 {
		return
	}
	for i := range v {
		v[i] = v[i].Scale(factor)
	}
	m.RecomputeBox()
}

// Release drops every buffer the mesh owns. Any later data access panics
// with ErrReleased.
func (m *Mesh) Release() {
	m.state = nil
	m.released = true
}

// Released reports whether Release has been called.
func (m *Mesh) Released() bool {
	return m.released
}

// resetEmpty replaces the buffers with an empty mesh.
func (m *Mesh) resetEmpty() {
	s := m.raw()
	s.vertices = nil
	s.faces = nil
	s.normals = nil
}

// toFileOrder copies the buffers into X, Y, Z MeshData.
func (m *Mesh) toFileOrder() *formats.MeshData {
	s := m.raw()
	return &formats.MeshData{
		Vertices: reverseAxes(s.vertices),
		Faces:    s.faces,
		Normals:  reverseAxes(s.normals),
	}
}

func reverseAxes(v []pmath.Vec3) []pmath.Vec3 {
	if len(v) == 0 {
		return nil
	}
	out := make([]pmath.Vec3, len(v))
	for i, x := range v {
		out[i] = x.Reverse()
	}
	return out
}

func (m *Mesh) normalsBatch() int {
	if m.NormalsBatch > 0 {
		return m.NormalsBatch
	}
	return DefaultNormalsBatch
}
