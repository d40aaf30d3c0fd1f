package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

func translated(t *testing.T, m *Mesh, by pmath.Vec3) *Mesh {
	t.Helper()
	verts := make([]pmath.Vec3, m.VertexCount())
	for i, v := range m.Vertices() {
		verts[i] = v.Add(by)
	}
	out, err := New(verts, append([][3]uint32(nil), m.Faces()...), nil)
	require.NoError(t, err)
	return out
}

func TestConcatenateConservation(t *testing.T) {
	inputs := []*Mesh{
		tetrahedron(t),
		translated(t, octahedron(t), pmath.Vec3{10, -5, 3}),
		Empty(),
		translated(t, tetrahedron(t), pmath.Vec3{-7, 20, 1}),
	}

	out, err := Concatenate(inputs, true)
	require.NoError(t, err)

	var nv, nf int
	for _, m := range inputs {
		nv += m.VertexCount()
		nf += m.FaceCount()
	}
	assert.Equal(t, nv, out.VertexCount())
	assert.Equal(t, nf, out.FaceCount())

	for _, m := range inputs {
		if m.VertexCount() == 0 {
			continue
		}
		for a := 0; a < 3; a++ {
			assert.LessOrEqual(t, out.Box.Min[a], m.Box.Min[a])
			assert.GreaterOrEqual(t, out.Box.Max[a], m.Box.Max[a])
		}
	}
	assert.Equal(t, [3]int32{-7, -6, 0}, out.Box.Min)
	assert.Equal(t, [3]int32{11, 21, 4}, out.Box.Max)
}

func TestConcatenateOffsetsFaces(t *testing.T) {
	a := tetrahedron(t)
	b := octahedron(t)
	out, err := Concatenate([]*Mesh{a, b}, false)
	require.NoError(t, err)

	faces := out.Faces()
	assert.Equal(t, a.Faces()[0], faces[0])
	off := uint32(a.VertexCount())
	bf := b.Faces()[0]
	assert.Equal(t, [3]uint32{bf[0] + off, bf[1] + off, bf[2] + off}, faces[a.FaceCount()])
	assert.Equal(t, b.Vertices()[0], out.Vertices()[a.VertexCount()])
}

func TestConcatenateNormals(t *testing.T) {
	a, b := tetrahedron(t), octahedron(t)
	a.RecomputeNormals(false)
	b.RecomputeNormals(false)

	out, err := Concatenate([]*Mesh{a, b}, true)
	require.NoError(t, err)
	assert.Len(t, out.Normals(), 10)

	out, err = Concatenate([]*Mesh{a, b}, false)
	require.NoError(t, err)
	assert.False(t, out.HasNormals())
}

func TestConcatenateInconsistentNormals(t *testing.T) {
	withNormals := tetrahedron(t)
	withNormals.RecomputeNormals(false)

	_, err := Concatenate([]*Mesh{withNormals, octahedron(t)}, true)
	require.ErrorIs(t, err, ErrInconsistentNormals)
	assert.Contains(t, err.Error(), "1 mismatches out of 2")

	out, err := Concatenate([]*Mesh{withNormals, octahedron(t)}, false)
	require.NoError(t, err)
	assert.Equal(t, 10, out.VertexCount())
}

func TestConcatenateDumpsMismatchedMeshes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	DebugDumpDir = dir
	t.Cleanup(func() { DebugDumpDir = "" })

	withNormals := tetrahedron(t)
	withNormals.RecomputeNormals(false)

	_, err := Concatenate([]*Mesh{octahedron(t), withNormals}, true)
	require.ErrorIs(t, err, ErrInconsistentNormals)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var kinds []string
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".obj"))
		kinds = append(kinds, strings.SplitN(e.Name(), "-", 2)[0])
	}
	assert.ElementsMatch(t, []string{"matching", "missing"}, kinds)
}

func TestConcatenateNothing(t *testing.T) {
	out, err := Concatenate(nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, out.VertexCount())
	assert.True(t, out.Box.IsEmpty())
}
