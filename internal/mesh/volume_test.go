package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmath "github.com/Faultbox/volmesh/pkg/math"
	"github.com/Faultbox/volmesh/pkg/volume"
)

// cornerSurfacer emits one triangle spanning the volume's extent and records
// the shapes it was called with.
type cornerSurfacer struct {
	shapes [][3]int
	err    error
}

func (s *cornerSurfacer) Surface(vol *volume.Binary) ([]pmath.Vec3, [][3]uint32, []pmath.Vec3, error) {
	s.shapes = append(s.shapes, vol.Shape)
	if s.err != nil {
		return nil, nil, nil, s.err
	}
	sh := vol.Shape
	return []pmath.Vec3{
			{0, 0, 0},
			{float32(sh[0]), 0, 0},
			{0, float32(sh[1]), float32(sh[2])},
		},
		[][3]uint32{{0, 1, 2}},
		nil, nil
}

func TestFromBinaryVolumeUniform(t *testing.T) {
	full := volume.Box{Min: [3]int{10, 20, 30}, Max: [3]int{14, 24, 34}}
	frag := &Fragment{Shape: [3]float64{4, 4, 4}, Origin: [3]float64{10, 20, 30}}

	for _, fg := range []bool{false, true} {
		vol := volume.New[bool]([3]int{4, 4, 4})
		for i := range vol.Data {
			vol.Data[i] = fg
		}
		s := &cornerSurfacer{}
		m, err := FromBinaryVolume(vol, full, frag, s)
		require.NoError(t, err)
		assert.Equal(t, 0, m.VertexCount())
		assert.Equal(t, 0, m.FaceCount())
		assert.Equal(t, pmath.Box{Min: [3]int32{10, 20, 30}, Max: [3]int32{14, 24, 34}}, m.Box)
		assert.Same(t, frag, m.Fragment)
		assert.Empty(t, s.shapes, "uniform volumes are not surfaced")
	}
}

func TestFromBinaryVolumeDownsampled(t *testing.T) {
	vol := volume.New[bool]([3]int{2, 4, 8})
	vol.Set(1, 1, 1, true)
	full := volume.Box{Min: [3]int{100, 0, 50}, Max: [3]int{108, 8, 66}}

	m, err := FromBinaryVolume(vol, full, nil, &cornerSurfacer{})
	require.NoError(t, err)
	assert.Equal(t, []pmath.Vec3{{100, 0, 50}, {108, 0, 50}, {100, 8, 66}}, m.Vertices())
	assert.Equal(t, pmath.Box{Min: [3]int32{100, 0, 50}, Max: [3]int32{108, 8, 66}}, m.Box)
	assert.Nil(t, m.Fragment)
}

func TestFromBinaryVolumeOwnExtent(t *testing.T) {
	vol := volume.New[bool]([3]int{3, 3, 3})
	vol.Set(0, 0, 0, true)

	m, err := FromBinaryVolume(vol, volume.Box{}, nil, &cornerSurfacer{})
	require.NoError(t, err)
	assert.Equal(t, pmath.Vec3{3, 0, 0}, m.Vertices()[1])
	assert.Equal(t, pmath.Box{Max: [3]int32{3, 3, 3}}, m.Box)
}

func TestFromBinaryVolumeSurfacerError(t *testing.T) {
	vol := volume.New[bool]([3]int{2, 2, 2})
	vol.Set(0, 0, 0, true)
	boom := errors.New("boom")

	_, err := FromBinaryVolume(vol, volume.Box{}, nil, &cornerSurfacer{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestFromLabelVolume(t *testing.T) {
	labels := volume.New[uint64]([3]int{6, 6, 6})
	labels.Set(2, 2, 2, 7)
	labels.Set(2, 2, 3, 7)
	labels.Set(5, 5, 5, 9)
	full := volume.Box{Min: [3]int{1000, 2000, 3000}, Max: [3]int{1012, 2012, 3012}}

	s := &cornerSurfacer{}
	meshes, err := FromLabelVolume(labels, full, []uint64{7, 9, 42}, s)
	require.NoError(t, err)
	require.Len(t, meshes, 3)

	assert.Nil(t, meshes[42], "absent label")
	require.NotNil(t, meshes[7])
	require.NotNil(t, meshes[9])

	// Label 7 spans voxels z=2, y=2, x=2..3; with the halo the crop is
	// [1,4) x [1,4) x [1,5) at half resolution.
	assert.Equal(t, [3]int{3, 3, 4}, s.shapes[0])
	assert.Equal(t, pmath.Box{Min: [3]int32{1002, 2002, 3002}, Max: [3]int32{1008, 2008, 3010}}, meshes[7].Box)
	assert.Equal(t, pmath.Vec3{1002, 2002, 3002}, meshes[7].Vertices()[0])

	// Label 9 sits in the far corner; the halo is clamped to the volume.
	assert.Equal(t, [3]int{2, 2, 2}, s.shapes[1])
	assert.Equal(t, pmath.Box{Min: [3]int32{1008, 2008, 3008}, Max: [3]int32{1012, 2012, 3012}}, meshes[9].Box)
}

func TestFromLabelVolumeAllLabels(t *testing.T) {
	labels := volume.New[uint64]([3]int{4, 4, 4})
	labels.Set(1, 1, 1, 3)
	labels.Set(2, 2, 2, 1)

	meshes, err := FromLabelVolume(labels, volume.Box{}, nil, &cornerSurfacer{})
	require.NoError(t, err)
	assert.Len(t, meshes, 2)
	assert.NotContains(t, meshes, uint64(0))
	assert.NotNil(t, meshes[1])
	assert.NotNil(t, meshes[3])
}

func TestFromBinaryBlocks(t *testing.T) {
	a := volume.New[bool]([3]int{2, 2, 2})
	a.Set(0, 0, 0, true)
	b := volume.New[bool]([3]int{2, 2, 2})
	b.Set(1, 1, 1, true)
	boxes := []volume.Box{
		{Max: [3]int{2, 2, 2}},
		{Min: [3]int{0, 2, 2}, Max: [3]int{2, 4, 4}},
	}

	m, err := FromBinaryBlocks([]*volume.Binary{a, b}, boxes, false, &cornerSurfacer{})
	require.NoError(t, err)
	assert.Equal(t, 6, m.VertexCount())
	assert.Equal(t, [][3]uint32{{0, 1, 2}, {3, 4, 5}}, m.Faces())

	// The third corner of block a, (0, 2, 2), is the first corner of block b.
	stitched, err := FromBinaryBlocks([]*volume.Binary{a, b}, boxes, true, &cornerSurfacer{})
	require.NoError(t, err)
	assert.Equal(t, 5, stitched.VertexCount())
	assert.Equal(t, 2, stitched.FaceCount())

	_, err = FromBinaryBlocks([]*volume.Binary{a}, boxes, false, &cornerSurfacer{})
	assert.Error(t, err)
}
