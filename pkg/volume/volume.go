// Package volume holds dense 3D voxel arrays in Z, Y, X (C) order.
package volume

import (
	"errors"
	"fmt"
)

// Volume errors.
var (
	ErrShapeMismatch = errors.New("volume data does not match shape")
)

// Box is a half-open voxel box [Min, Max) in Z, Y, X order.
type Box struct {
	Min [3]int
	Max [3]int
}

// Shape returns Max - Min.
func (b Box) Shape() [3]int {
	return [3]int{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// IsZero reports whether the box is all zeros, the "nothing found" result of NonzeroBox.
func (b Box) IsZero() bool {
	return b == Box{}
}

// Grid is a dense voxel array of any label type.
type Grid[T comparable] struct {
	Shape [3]int // Z, Y, X
	Data  []T
}

// Binary is a foreground mask.
type Binary = Grid[bool]

// Labels is a segmentation volume; label 0 is background.
type Labels = Grid[uint64]

// New allocates a zeroed grid.
func New[T comparable](shape [3]int) *Grid[T] {
	return &Grid[T]{Shape: shape, Data: make([]T, shape[0]*shape[1]*shape[2])}
}

// FromData wraps existing data, checking its length.
func FromData[T comparable](shape [3]int, data []T) (*Grid[T], error) {
	if len(data) != shape[0]*shape[1]*shape[2] {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Grid[T]{Shape: shape, Data: data}, nil
}

// Index returns the flat offset of (z, y, x).
func (g *Grid[T]) Index(z, y, x int) int {
	return (z*g.Shape[1]+y)*g.Shape[2] + x
}

// At returns the value at (z, y, x).
func (g *Grid[T]) At(z, y, x int) T {
	return g.Data[g.Index(z, y, x)]
}

// Set stores a value at (z, y, x).
func (g *Grid[T]) Set(z, y, x int, v T) {
	g.Data[g.Index(z, y, x)] = v
}

// Len returns the voxel count.
func (g *Grid[T]) Len() int {
	return len(g.Data)
}

// Uniform reports whether every voxel holds the same value.
func (g *Grid[T]) Uniform() bool {
	for _, v := range g.Data {
		if v != g.Data[0] {
			return false
		}
	}
	return true
}

// Mask returns a binary grid that is true where the value equals label.
func (g *Grid[T]) Mask(label T) *Binary {
	out := &Binary{Shape: g.Shape, Data: make([]bool, len(g.Data))}
	for i, v := range g.Data {
		out.Data[i] = v == label
	}
	return out
}

// Extract copies the sub-volume covered by box.
func (g *Grid[T]) Extract(box Box) *Grid[T] {
	shape := box.Shape()
	out := New[T](shape)
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			src := g.Index(box.Min[0]+z, box.Min[1]+y, box.Min[2])
			dst := out.Index(z, y, 0)
			copy(out.Data[dst:dst+shape[2]], g.Data[src:src+shape[2]])
		}
	}
	return out
}

// Unique returns the distinct values in first-seen order.
func (g *Grid[T]) Unique() []T {
	seen := make(map[T]struct{})
	var out []T
	for _, v := range g.Data {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// NonzeroBox returns the tight box around voxels that differ from the zero
// value, or the zero Box when there are none.
func NonzeroBox[T comparable](g *Grid[T]) Box {
	var zero T
	lo := g.Shape
	hi := [3]int{}
	found := false
	for z := 0; z < g.Shape[0]; z++ {
		for y := 0; y < g.Shape[1]; y++ {
			row := g.Index(z, y, 0)
			for x := 0; x < g.Shape[2]; x++ {
				if g.Data[row+x] == zero {
					continue
				}
				found = true
				p := [3]int{z, y, x}
				for i := 0; i < 3; i++ {
					lo[i] = min(lo[i], p[i])
					hi[i] = max(hi[i], p[i]+1)
				}
			}
		}
	}
	if !found {
		return Box{}
	}
	return Box{Min: lo, Max: hi}
}
