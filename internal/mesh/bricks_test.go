package mesh

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// morton interleaves the bits of x, y and z with x in the lowest position.
func morton(c [3]int64) uint64 {
	var code uint64
	for bit := 0; bit < 21; bit++ {
		for a := 0; a < 3; a++ {
			code |= uint64((c[a]>>bit)&1) << (3*bit + a)
		}
	}
	return code
}

func TestCompareZOrderUnitCube(t *testing.T) {
	want := [][3]int64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	}
	got := slices.Clone(want)
	rand.New(rand.NewPCG(3, 4)).Shuffle(len(got), func(i, j int) { got[i], got[j] = got[j], got[i] })

	slices.SortFunc(got, CompareZOrder)
	assert.Equal(t, want, got)
}

func TestCompareZOrderNegativeCoordinates(t *testing.T) {
	assert.Equal(t, -1, CompareZOrder([3]int64{5, 5, 5}, [3]int64{-1, 0, 0}), "negatives sort after non-negatives")
	assert.Equal(t, 1, CompareZOrder([3]int64{0, -1, 0}, [3]int64{-1, 0, 0}))

	r := rand.New(rand.NewPCG(7, 8))
	coords := make([][3]int64, 200)
	for i := range coords {
		for a := 0; a < 3; a++ {
			coords[i][a] = r.Int64N(64) - 32
		}
	}
	slices.SortFunc(coords, CompareZOrder)
	for i := range coords {
		for j := i + 1; j < len(coords); j++ {
			if CompareZOrder(coords[i], coords[j]) > 0 {
				t.Fatalf("%v sorted before %v", coords[i], coords[j])
			}
			assert.Equal(t, -CompareZOrder(coords[i], coords[j]), CompareZOrder(coords[j], coords[i]))
		}
	}
}

func TestCompareZOrderMatchesMorton(t *testing.T) {
	var coords [][3]int64
	for z := int64(0); z < 5; z++ {
		for y := int64(0); y < 5; y++ {
			for x := int64(0); x < 5; x++ {
				coords = append(coords, [3]int64{x, y, z})
			}
		}
	}
	for _, l := range coords {
		for _, r := range coords {
			ml, mr := morton(l), morton(r)
			got := CompareZOrder(l, r)
			switch {
			case ml < mr:
				assert.Negative(t, got, "%v < %v", l, r)
			case ml > mr:
				assert.Positive(t, got, "%v > %v", l, r)
			default:
				assert.Zero(t, got)
			}
		}
	}
}

// unitFragment returns a one-triangle mesh inside the unit fragment at
// origin (Z, Y, X).
func unitFragment(t *testing.T, origin [3]float64) *Mesh {
	t.Helper()
	o := pmath.Vec3{float32(origin[0]), float32(origin[1]), float32(origin[2])}
	m, err := New(
		[]pmath.Vec3{o.Add(pmath.Vec3{0.5, 0.1, 0.1}), o.Add(pmath.Vec3{0.5, 0.1, 0.9}), o.Add(pmath.Vec3{0.5, 0.9, 0.1})},
		[][3]uint32{{0, 1, 2}},
		nil,
	)
	require.NoError(t, err)
	m.Fragment = &Fragment{Shape: [3]float64{1, 1, 1}, Origin: origin}
	return m
}

func octantFragments(t *testing.T) []*Mesh {
	var meshes []*Mesh
	for z := 0.0; z < 2; z++ {
		for y := 0.0; y < 2; y++ {
			for x := 0.0; x < 2; x++ {
				meshes = append(meshes, unitFragment(t, [3]float64{z, y, x}))
			}
		}
	}
	return meshes
}

func vertexCounts(meshes []*Mesh) []int {
	counts := make([]int, len(meshes))
	for i, m := range meshes {
		counts[i] = m.VertexCount()
	}
	return counts
}

func TestGroupBricksSameLOD(t *testing.T) {
	frags := octantFragments(t)
	bricks, err := GroupBricks(frags, vertexCounts(frags), 0, 0)
	require.NoError(t, err)
	require.Len(t, bricks, 8)

	// Origins are Z, Y, X; Z-order has X varying fastest.
	want := [][3]float64{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1},
		{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1},
	}
	for i, b := range bricks {
		assert.Equal(t, want[i], b.Fragment.Origin)
		assert.Equal(t, [3]float64{1, 1, 1}, b.Fragment.Shape)
		assert.Equal(t, 3, b.VertexCount())
	}
}

func TestGroupBricksCoarserLOD(t *testing.T) {
	frags := octantFragments(t)
	for _, f := range frags {
		f.RecomputeNormals(false)
	}

	bricks, err := GroupBricks(frags, vertexCounts(frags), 2, 1)
	require.NoError(t, err)
	require.Len(t, bricks, 1)

	b := bricks[0]
	assert.Equal(t, [3]float64{0, 0, 0}, b.Fragment.Origin)
	assert.Equal(t, [3]float64{2, 2, 2}, b.Fragment.Shape)
	assert.Equal(t, 24, b.VertexCount())
	assert.Equal(t, 8, b.FaceCount())
	assert.False(t, b.HasNormals())
}

func TestGroupBricksSkipsEmptyFragments(t *testing.T) {
	frags := octantFragments(t)
	counts := vertexCounts(frags)
	counts[0] = 0
	counts[7] = 0

	bricks, err := GroupBricks(frags, counts, 0, 0)
	require.NoError(t, err)
	require.Len(t, bricks, 6)
	assert.Equal(t, [3]float64{0, 0, 1}, bricks[0].Fragment.Origin)
}

func TestGroupBricksErrors(t *testing.T) {
	frags := octantFragments(t)

	_, err := GroupBricks(frags, []int{1}, 0, 0)
	assert.Error(t, err)

	_, err = GroupBricks(frags, vertexCounts(frags), 0, 1)
	assert.Error(t, err)

	frags[0].Fragment = nil
	_, err = GroupBricks(frags, vertexCounts(frags), 0, 0)
	assert.ErrorIs(t, err, ErrNoFragment)

	bricks, err := GroupBricks(nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, bricks)
}
