package mesh

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/clip"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// DefaultSlicer performs the half-space cuts of Trim.
var DefaultSlicer clip.Slicer = clip.HalfSpace{}

// Quantize maps every vertex from the fragment box onto the integer grid
// [0, 2^bits-1] per axis, rounding to the nearest grid point. Afterwards the
// fragment origin is zero and its shape is 2^bits-1, so the mesh is in grid
// space.
func (m *Mesh) Quantize(bits int) error {
	if m.Fragment == nil {
		return ErrNoFragment
	}
	if bits < 1 || bits > 30 {
		return fmt.Errorf("quantization bits out of range: %d", bits)
	}

	ub := float64(uint32(1)<<bits - 1)
	frag := *m.Fragment
	v := m.Vertices()
	for i := range v {
		for a := 0; a < 3; a++ {
			q := (float64(v[i][a]) - frag.Origin[a]) * ub / frag.Shape[a]
			v[i][a] = float32(math.Floor(min(ub, max(0, q+0.5))))
		}
	}

	m.Fragment = &Fragment{Shape: [3]float64{ub, ub, ub}}
	m.RecomputeBox()
	return nil
}

// TrimOptions controls Trim. LOD and QuantizationBits only label the log
// output; cuts are always at the fragment faces and geometric midpoints.
type TrimOptions struct {
	LOD              int
	QuantizationBits int
	// Subdivide also cuts at the fragment midpoint on every axis, so that no
	// face crosses an octant boundary.
	Subdivide bool
}

// Trim clips the mesh to its fragment box with one cut per box face. Cut
// edges produce new vertices on the box boundary. Normals are dropped. If
// nothing remains, the mesh becomes empty.
func (m *Mesh) Trim(opts TrimOptions) error {
	if m.Fragment == nil {
		return ErrNoFragment
	}
	frag := *m.Fragment
	lo := frag.Origin
	var hi, mid [3]float64
	for a := 0; a < 3; a++ {
		hi[a] = lo[a] + frag.Shape[a]
		mid[a] = (lo[a] + hi[a]) / 2
	}

	s := m.raw()
	var (
		vertices []pmath.Vec3
		faces    [][3]uint32
	)
	if opts.Subdivide {
		vertices, faces = trimOctants(s.vertices, s.faces, lo, mid, hi)
	} else {
		vertices, faces = trimBox(s.vertices, s.faces, lo, hi)
	}

	logger.Named("chunk").Debug("trimmed fragment",
		zap.Int("lod", opts.LOD),
		zap.Int("bits", opts.QuantizationBits),
		zap.Bool("subdivide", opts.Subdivide),
		zap.Int("vertices_before", len(s.vertices)),
		zap.Int("vertices_after", len(vertices)))

	s.normals = nil
	if len(vertices) == 0 {
		m.resetEmpty()
		m.Box = pmath.EmptyBox()
		return nil
	}
	s.vertices = vertices
	s.faces = faces
	if opts.Subdivide {
		m.DropUnusedVertices()
	}
	m.RecomputeBox()
	return nil
}

// trimBox keeps the part of the mesh between lo and hi, cutting the
// last axis first.
func trimBox(vertices []pmath.Vec3, faces [][3]uint32, lo, hi [3]float64) ([]pmath.Vec3, [][3]uint32) {
	for a := 2; a >= 0; a-- {
		if len(vertices) == 0 {
			break
		}
		vertices, faces = DefaultSlicer.Slice(vertices, faces, clip.AxisPlane(a, lo, 1))
		if len(vertices) == 0 {
			break
		}
		vertices, faces = DefaultSlicer.Slice(vertices, faces, clip.AxisPlane(a, hi, -1))
	}
	return vertices, faces
}

// trimOctants trims each of the eight octants of the box separately and
// concatenates the pieces. A face lying on a midplane is kept by the octants
// on both sides, so only its first copy survives; the vertices of dropped
// copies are left unreferenced.
func trimOctants(vertices []pmath.Vec3, faces [][3]uint32, lo, mid, hi [3]float64) ([]pmath.Vec3, [][3]uint32) {
	edges := [3][3]float64{lo, mid, hi}
	var (
		outV []pmath.Vec3
		outF [][3]uint32
	)
	for i := 0; i < 8; i++ {
		var olo, ohi [3]float64
		// Z varies fastest, X slowest.
		for a := 0; a < 3; a++ {
			half := (i >> a) & 1
			olo[a] = edges[half][a]
			ohi[a] = edges[half+1][a]
		}
		v, f := trimBox(vertices, faces, olo, ohi)
		offset := uint32(len(outV))
		outV = append(outV, v...)
		for _, t := range f {
			outF = append(outF, [3]uint32{t[0] + offset, t[1] + offset, t[2] + offset})
		}
	}
	return outV, dropCoincidentFaces(outV, outF)
}

// dropCoincidentFaces removes faces whose corner positions repeat those of
// an earlier face, ignoring winding.
func dropCoincidentFaces(vertices []pmath.Vec3, faces [][3]uint32) [][3]uint32 {
	ids, dups := firstOccurrences(vertices)
	if dups == 0 {
		return faces
	}
	seen := make(map[[3]uint32]struct{}, len(faces))
	kept := faces[:0]
	for _, f := range faces {
		key := sortTriple([3]uint32{ids[f[0]], ids[f[1]], ids[f[2]]})
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, f)
	}
	return kept
}

// PartitionPoint returns the position, per axis, that a Draco decoder
// quantizing the fragment with the given bits maps to the grid midpoint
// 2^(bits-1). It accounts for the decoder's half-step rounding offset.
//
// TODO: validate the offset against decoded output before using it for
// subdivision cuts; Trim currently cuts at the geometric midpoint.
func PartitionPoint(shape, origin [3]float64, bits int) [3]float64 {
	var p [3]float64
	half := float64(uint32(1) << (bits - 1))
	for a := 0; a < 3; a++ {
		scale := float64(uint32(1)<<bits-1) / shape[a]
		offset := 0.5/scale - origin[a]
		p[a] = half/scale - offset
	}
	return p
}
