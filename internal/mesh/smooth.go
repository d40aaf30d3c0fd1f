package mesh

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// LaplacianSmooth relaxes every vertex towards the mean of itself and its
// edge neighbours, for the given number of iterations. Updates are
// synchronous: each pass reads only the previous pass's positions.
//
// Repeated passes shrink the mesh. Normals are recomputed afterwards and
// faces that collapsed to zero area are removed. With zero iterations the
// vertices are untouched and normals are only computed if missing.
func (m *Mesh) LaplacianSmooth(iterations int) {
	if iterations <= 0 {
		if !m.HasNormals() {
			m.RecomputeNormals(true)
		}
		return
	}

	s := m.raw()
	s.normals = nil

	edges := uniqueEdges(s.faces)
	degree := make([]float32, len(s.vertices))
	for _, e := range edges {
		degree[e[0]]++
		degree[e[1]]++
	}

	cur := s.vertices
	next := make([]pmath.Vec3, len(cur))
	for it := 0; it < iterations; it++ {
		copy(next, cur)
		for _, e := range edges {
			next[e[0]] = next[e[0]].Add(cur[e[1]])
			next[e[1]] = next[e[1]].Add(cur[e[0]])
		}
		for i := range next {
			next[i] = next[i].Scale(1 / (degree[i] + 1))
		}
		cur, next = next, cur
	}
	s.vertices = cur

	logger.Named("smooth").Debug("smoothed mesh",
		zap.Int("iterations", iterations),
		zap.Int("edges", len(edges)))

	m.RecomputeNormals(true)
}

// uniqueEdges returns every undirected face edge once, as (low, high) pairs
// in ascending order.
func uniqueEdges(faces [][3]uint32) [][2]uint32 {
	edges := make([][2]uint32, 0, 3*len(faces))
	for _, f := range faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			edges = append(edges, [2]uint32{a, b})
		}
	}
	slices.SortFunc(edges, func(x, y [2]uint32) int {
		if c := cmp.Compare(x[0], y[0]); c != 0 {
			return c
		}
		return cmp.Compare(x[1], y[1])
	})
	return slices.Compact(edges)
}
