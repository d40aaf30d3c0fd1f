package math

import (
	stdmath "math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 4, 12}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if z := (Vec3{}).Normalize(); !z.IsZero() {
		t.Errorf("zero vector should normalize to zero, got %v", z)
	}
}

func TestVec3Reverse(t *testing.T) {
	if got := (Vec3{1, 2, 3}).Reverse(); got != (Vec3{3, 2, 1}) {
		t.Errorf("Reverse() = %v", got)
	}
}

func TestEmptyBoxIsUnionIdentity(t *testing.T) {
	b := Box{Min: [3]int32{-1, 0, 2}, Max: [3]int32{4, 5, 6}}
	if got := EmptyBox().Union(b); got != b {
		t.Errorf("EmptyBox().Union(b) = %v, want %v", got, b)
	}
	if got := b.Union(EmptyBox()); got != b {
		t.Errorf("b.Union(EmptyBox()) = %v, want %v", got, b)
	}
	if !EmptyBox().IsEmpty() {
		t.Error("EmptyBox should report empty")
	}
	if EmptyBox().Min[0] != stdmath.MaxInt32 || EmptyBox().Max[2] != stdmath.MinInt32 {
		t.Error("sentinel values changed")
	}
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf([]Vec3{{0.5, 2, -1}, {3.2, 1, 0}})
	want := Box{Min: [3]int32{0, 1, -1}, Max: [3]int32{4, 2, 0}}
	if b != want {
		t.Errorf("BoundsOf = %v, want %v", b, want)
	}
	if b.Shape() != [3]int32{4, 1, 1} {
		t.Errorf("Shape = %v", b.Shape())
	}
	neg := BoundsOf([]Vec3{{-0.5, -2.5, 1}})
	if want := (Box{Min: [3]int32{-1, -3, 1}, Max: [3]int32{0, -2, 1}}); neg != want {
		t.Errorf("BoundsOf negative = %v, want %v", neg, want)
	}
	if !BoundsOf(nil).IsEmpty() {
		t.Error("no vertices should give the empty box")
	}
}
