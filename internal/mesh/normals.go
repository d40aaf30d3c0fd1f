package mesh

import (
	"github.com/chewxy/math32"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// FaceNormals computes one normal per face, batch faces at a time. Without
// normalize the magnitude is twice the face area. Degenerate faces get an
// exact zero vector either way.
//
// Coordinates are Z, Y, X, so the edge order is swapped relative to the
// usual X, Y, Z formula to keep the normals pointing outward.
func FaceNormals(vertices []pmath.Vec3, faces [][3]uint32, normalize bool, batch int) []pmath.Vec3 {
	if batch <= 0 {
		batch = DefaultNormalsBatch
	}
	out := make([]pmath.Vec3, len(faces))
	for start := 0; start < len(faces); start += batch {
		end := min(start+batch, len(faces))
		faceNormalsBatch(vertices, faces[start:end], out[start:end], normalize)
	}
	return out
}

func faceNormalsBatch(vertices []pmath.Vec3, faces [][3]uint32, out []pmath.Vec3, normalize bool) {
	for i, f := range faces {
		c0, c1, c2 := vertices[f[0]], vertices[f[1]], vertices[f[2]]
		v1 := c1.Sub(c0)
		v2 := c2.Sub(c1)
		n := v2.Cross(v1)
		if normalize {
			if l := n.Length(); l != 0 {
				n = pmath.Vec3{n[0] / l, n[1] / l, n[2] / l}
			}
		}
		out[i] = n
	}
}

// VertexNormals sums the face normals incident to each vertex and normalizes
// the result. Passing unnormalized face normals weights faces by area.
// Vertices whose sum is zero keep a zero normal.
func VertexNormals(vertices []pmath.Vec3, faces [][3]uint32, faceNormals []pmath.Vec3) []pmath.Vec3 {
	out := make([]pmath.Vec3, len(vertices))
	for i, f := range faces {
		n := faceNormals[i]
		for _, vi := range f {
			out[vi] = out[vi].Add(n)
		}
	}
	for i, n := range out {
		l := math32.Sqrt(n.Dot(n))
		if l == 0 {
			continue
		}
		out[i] = pmath.Vec3{n[0] / l, n[1] / l, n[2] / l}
	}
	return out
}

// RecomputeNormals replaces the vertex normals. With removeDegenerate, faces
// with a zero normal are dropped first; vertices left unreferenced stay in
// place (use StitchAdjacentFaces or DropUnusedVertices to remove them). If
// no faces remain, the vertices and normals are cleared as well.
func (m *Mesh) RecomputeNormals(removeDegenerate bool) {
	s := m.raw()
	fn := FaceNormals(s.vertices, s.faces, false, m.normalsBatch())

	if removeDegenerate {
		kept := 0
		for i, n := range fn {
			if n.IsZero() {
				continue
			}
			s.faces[kept] = s.faces[i]
			fn[kept] = n
			kept++
		}
		s.faces = s.faces[:kept]
		fn = fn[:kept]
	}

	if len(s.faces) == 0 {
		s.vertices = nil
		s.normals = nil
		return
	}
	s.normals = VertexNormals(s.vertices, s.faces, fn)
}
