package mesh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/volmesh/pkg/formats"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// keepFirstFaces returns the first fraction of the input faces and the
// vertices unchanged.
type keepFirstFaces struct {
	calls int
	in    *formats.MeshData
	err   error
}

func (d *keepFirstFaces) Decimate(_ context.Context, in *formats.MeshData, fraction float64) (*formats.MeshData, error) {
	d.calls++
	d.in = in
	if d.err != nil {
		return nil, d.err
	}
	n := int(float64(len(in.Faces)) * fraction)
	return &formats.MeshData{
		Vertices: in.Vertices,
		Faces:    append([][3]uint32(nil), in.Faces[:n]...),
	}, nil
}

func TestSimplifyDecimates(t *testing.T) {
	m := octahedron(t)
	m.RecomputeNormals(false)
	d := &keepFirstFaces{}

	require.NoError(t, m.Simplify(context.Background(), d, 0.75))
	assert.Equal(t, 1, d.calls)
	assert.Nil(t, d.in.Normals, "decimators get no normals")
	assert.Equal(t, pmath.Vec3{0, 0, 1}, d.in.Vertices[0], "decimators see X, Y, Z")

	assert.Equal(t, 6, m.FaceCount())
	assert.Equal(t, octahedron(t).Vertices(), m.Vertices())
	assert.True(t, m.HasNormals())
}

func TestSimplifySkips(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
	}{
		{"no reduction", 1},
		{"too few faces", 0.5}, // 8 * 0.5 = 4
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := octahedron(t)
			d := &keepFirstFaces{}
			require.NoError(t, m.Simplify(context.Background(), d, tt.fraction))
			assert.Zero(t, d.calls)
			assert.Equal(t, 8, m.FaceCount())
			assert.True(t, m.HasNormals(), "missing normals are computed")
		})
	}
}

func TestSimplifySkipKeepsNormals(t *testing.T) {
	m := octahedron(t)
	normals := make([]pmath.Vec3, m.VertexCount())
	for i := range normals {
		normals[i] = pmath.Vec3{1, 0, 0}
	}
	m.SetNormals(normals)

	require.NoError(t, m.Simplify(context.Background(), &keepFirstFaces{}, 1))
	assert.Equal(t, normals, m.Normals())
}

func TestSimplifyErrors(t *testing.T) {
	for _, fraction := range []float64{0, -0.5, 1.5} {
		assert.Error(t, octahedron(t).Simplify(context.Background(), &keepFirstFaces{}, fraction), "fraction %v", fraction)
	}

	boom := errors.New("tool crashed")
	m := octahedron(t)
	err := m.Simplify(context.Background(), &keepFirstFaces{err: boom}, 0.75)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 8, m.FaceCount(), "mesh untouched on failure")
}

type badIndices struct{}

func (badIndices) Decimate(context.Context, *formats.MeshData, float64) (*formats.MeshData, error) {
	return &formats.MeshData{Vertices: []pmath.Vec3{{0, 0, 0}}, Faces: [][3]uint32{{0, 1, 2}}}, nil
}

func TestSimplifyRejectsInvalidOutput(t *testing.T) {
	err := octahedron(t).Simplify(context.Background(), badIndices{}, 0.75)
	assert.ErrorIs(t, err, formats.ErrFaceIndexRange)
}
