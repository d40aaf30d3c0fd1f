package math

import (
	stdmath "math"

	"github.com/chewxy/math32"
)

// Box is an integer axis-aligned bounding box. Max is inclusive of the
// ceiling of the largest coordinate.
type Box struct {
	Min [3]int32
	Max [3]int32
}

// EmptyBox returns the inverted sentinel box used for meshes without
// vertices. It is the identity element of Union.
func EmptyBox() Box {
	return Box{
		Min: [3]int32{stdmath.MaxInt32, stdmath.MaxInt32, stdmath.MaxInt32},
		Max: [3]int32{stdmath.MinInt32, stdmath.MinInt32, stdmath.MinInt32},
	}
}

// IsEmpty reports whether the box is inverted on any axis.
func (b Box) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Union returns the smallest box enclosing both boxes.
func (b Box) Union(o Box) Box {
	out := b
	for i := 0; i < 3; i++ {
		out.Min[i] = min(b.Min[i], o.Min[i])
		out.Max[i] = max(b.Max[i], o.Max[i])
	}
	return out
}

// Shape returns Max - Min per axis.
func (b Box) Shape() [3]int32 {
	return [3]int32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// BoundsOf computes the box of a vertex list: the floor of the minimum and
// the ceiling of the maximum. An empty list yields EmptyBox.
func BoundsOf(vertices []Vec3) Box {
	if len(vertices) == 0 {
		return EmptyBox()
	}
	lo, hi := vertices[0], vertices[0]
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], v[i])
			hi[i] = max(hi[i], v[i])
		}
	}
	var b Box
	for i := 0; i < 3; i++ {
		b.Min[i] = int32(math32.Floor(lo[i]))
		b.Max[i] = int32(math32.Ceil(hi[i]))
	}
	return b
}
