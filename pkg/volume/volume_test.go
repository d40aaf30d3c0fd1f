package volume

import (
	"errors"
	"testing"
)

func TestNonzeroBox(t *testing.T) {
	g := New[uint64]([3]int{4, 5, 6})
	g.Set(1, 2, 3, 7)
	g.Set(2, 4, 1, 7)

	got := NonzeroBox(g)
	want := Box{Min: [3]int{1, 2, 1}, Max: [3]int{3, 5, 4}}
	if got != want {
		t.Errorf("NonzeroBox = %+v, want %+v", got, want)
	}

	if !NonzeroBox(New[bool]([3]int{2, 2, 2})).IsZero() {
		t.Error("empty volume should give the zero box")
	}
}

func TestExtract(t *testing.T) {
	g := New[uint64]([3]int{3, 3, 3})
	for i := range g.Data {
		g.Data[i] = uint64(i)
	}
	sub := g.Extract(Box{Min: [3]int{1, 1, 1}, Max: [3]int{3, 2, 3}})

	if sub.Shape != [3]int{2, 1, 2} {
		t.Fatalf("shape = %v", sub.Shape)
	}
	if sub.At(0, 0, 0) != g.At(1, 1, 1) || sub.At(1, 0, 1) != g.At(2, 1, 2) {
		t.Errorf("extracted values wrong: %v", sub.Data)
	}
}

func TestMaskUniqueUniform(t *testing.T) {
	g := New[uint64]([3]int{1, 2, 2})
	if !g.Uniform() {
		t.Error("zeroed grid should be uniform")
	}
	g.Data = []uint64{0, 5, 5, 9}

	if g.Uniform() {
		t.Error("mixed grid should not be uniform")
	}
	u := g.Unique()
	if len(u) != 3 || u[0] != 0 || u[1] != 5 || u[2] != 9 {
		t.Errorf("Unique() = %v", u)
	}
	m := g.Mask(5)
	if m.Data[0] || !m.Data[1] || !m.Data[2] || m.Data[3] {
		t.Errorf("Mask(5) = %v", m.Data)
	}
}

func TestFromData(t *testing.T) {
	if _, err := FromData([3]int{2, 2, 2}, make([]bool, 7)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	g, err := FromData([3]int{1, 1, 2}, []bool{true, false})
	if err != nil || !g.At(0, 0, 0) {
		t.Errorf("FromData = %v, %v", g, err)
	}
}
