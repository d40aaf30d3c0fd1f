// Package clip restricts triangle meshes to half-spaces.
//
// Cut edges are shared between the two triangles that use them, so the
// boundary produced along a cut stays manifold: every new vertex is created
// once per original edge and referenced by both neighbours.
package clip

import (
	"gonum.org/v1/gonum/spatial/r3"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// DefaultEpsilon is the distance under which a vertex counts as lying on the plane.
const DefaultEpsilon = 1e-8

// Plane is an oriented plane; the kept half-space is the side Normal points to.
type Plane struct {
	Normal r3.Vec
	Origin r3.Vec
}

// AxisPlane returns the plane through origin perpendicular to axis, facing
// positive (sign > 0) or negative (sign < 0) along that axis.
func AxisPlane(axis int, origin [3]float64, sign float64) Plane {
	var n [3]float64
	n[axis] = sign
	return Plane{
		Normal: r3.Vec{X: n[0], Y: n[1], Z: n[2]},
		Origin: r3.Vec{X: origin[0], Y: origin[1], Z: origin[2]},
	}
}

// Distance returns the signed distance of p from the plane, scaled by |Normal|.
func (p Plane) Distance(v pmath.Vec3) float64 {
	q := r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	return r3.Dot(r3.Sub(q, p.Origin), p.Normal)
}

// Slicer cuts a mesh with a plane and returns the part in the positive half-space.
type Slicer interface {
	Slice(vertices []pmath.Vec3, faces [][3]uint32, p Plane) ([]pmath.Vec3, [][3]uint32)
}

// HalfSpace is the built-in Slicer. Vertices unused by the result are dropped
// and the remaining ones keep their relative order.
type HalfSpace struct {
	Epsilon float64
}

// Slice implements Slicer.
func (h HalfSpace) Slice(vertices []pmath.Vec3, faces [][3]uint32, p Plane) ([]pmath.Vec3, [][3]uint32) {
	eps := h.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}

	dist := make([]float64, len(vertices))
	side := make([]int8, len(vertices))
	for i, v := range vertices {
		d := p.Distance(v)
		dist[i] = d
		switch {
		case d > eps:
			side[i] = 1
		case d < -eps:
			side[i] = -1
		}
	}

	outVerts := append([]pmath.Vec3(nil), vertices...)
	outFaces := make([][3]uint32, 0, len(faces))
	cuts := make(map[[2]uint32]uint32)

	cut := func(a, b uint32) uint32 {
		if a > b {
			a, b = b, a
		}
		key := [2]uint32{a, b}
		if idx, ok := cuts[key]; ok {
			return idx
		}
		t := dist[a] / (dist[a] - dist[b])
		va, vb := vertices[a], vertices[b]
		var nv pmath.Vec3
		for i := 0; i < 3; i++ {
			nv[i] = float32(float64(va[i]) + t*(float64(vb[i])-float64(va[i])))
		}
		idx := uint32(len(outVerts))
		outVerts = append(outVerts, nv)
		cuts[key] = idx
		return idx
	}

	var poly [4]uint32
	for _, f := range faces {
		pos, neg := 0, 0
		for _, vi := range f {
			switch side[vi] {
			case 1:
				pos++
			case -1:
				neg++
			}
		}
		if neg == 0 {
			outFaces = append(outFaces, f)
			continue
		}
		if pos == 0 {
			continue
		}

		// Walk the triangle in order, emitting kept corners and edge cuts.
		n := 0
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if side[a] >= 0 {
				poly[n] = a
				n++
			}
			if side[a]*side[b] < 0 {
				poly[n] = cut(a, b)
				n++
			}
		}
		for k := 1; k+1 < n; k++ {
			outFaces = append(outFaces, [3]uint32{poly[0], poly[k], poly[k+1]})
		}
	}

	return compact(outVerts, outFaces)
}

// compact drops unreferenced vertices, preserving order, and renumbers faces.
func compact(vertices []pmath.Vec3, faces [][3]uint32) ([]pmath.Vec3, [][3]uint32) {
	remap := make([]int64, len(vertices))
	for i := range remap {
		remap[i] = -1
	}
	for _, f := range faces {
		for _, vi := range f {
			remap[vi] = 0
		}
	}
	kept := make([]pmath.Vec3, 0, len(vertices))
	for i, r := range remap {
		if r == 0 {
			remap[i] = int64(len(kept))
			kept = append(kept, vertices[i])
		}
	}
	for i := range faces {
		for j := 0; j < 3; j++ {
			faces[i][j] = uint32(remap[faces[i][j]])
		}
	}
	return kept, faces
}
