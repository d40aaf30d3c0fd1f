package mesh

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
)

// GroupBricks merges fine fragments into the coarser bricks of currentLOD and
// returns the bricks in Z-order.
//
// Meshes whose entry in vertexCounts is zero are skipped. The brick shape is
// the first remaining fragment's shape times 2^(currentLOD-highestResLOD);
// each fragment joins the brick containing its origin. Bricks carry no
// normals.
func GroupBricks(meshes []*Mesh, vertexCounts []int, currentLOD, highestResLOD int) ([]*Mesh, error) {
	if len(vertexCounts) != len(meshes) {
		return nil, fmt.Errorf("got %d vertex counts for %d meshes", len(vertexCounts), len(meshes))
	}
	if currentLOD < highestResLOD {
		return nil, fmt.Errorf("lod %d is finer than highest resolution lod %d", currentLOD, highestResLOD)
	}

	kept := make([]*Mesh, 0, len(meshes))
	for i, m := range meshes {
		if vertexCounts[i] > 0 {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	for _, m := range kept {
		if m.Fragment == nil {
			return nil, ErrNoFragment
		}
	}

	factor := float64(int64(1) << (currentLOD - highestResLOD))
	var brick [3]float64
	for a := 0; a < 3; a++ {
		brick[a] = factor * kept[0].Fragment.Shape[a]
	}

	groups := make(map[[3]float64][]*Mesh)
	var order [][3]float64
	for _, m := range kept {
		var key [3]float64
		for a := 0; a < 3; a++ {
			key[a] = brick[a] * math.Floor(m.Fragment.Origin[a]/brick[a])
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	type entry struct {
		mesh  *Mesh
		coord [3]int64 // X, Y, Z brick index
	}
	bricks := make([]entry, 0, len(order))
	for _, key := range order {
		combined, err := Concatenate(groups[key], false)
		if err != nil {
			return nil, err
		}
		combined.Fragment = &Fragment{Shape: brick, Origin: key}

		var coord [3]int64
		for a := 0; a < 3; a++ {
			coord[2-a] = int64(math.Floor(key[a] / brick[a]))
		}
		bricks = append(bricks, entry{mesh: combined, coord: coord})
	}

	slices.SortStableFunc(bricks, func(l, r entry) int {
		return CompareZOrder(l.coord, r.coord)
	})

	out := make([]*Mesh, len(bricks))
	for i, b := range bricks {
		out[i] = b.mesh
	}

	logger.Named("chunk").Debug("grouped bricks",
		zap.Int("fragments", len(kept)),
		zap.Int("bricks", len(out)),
		zap.Int("lod", currentLOD))
	return out, nil
}

// CompareZOrder orders X, Y, Z integer coordinates along the Morton curve.
// The axis whose values differ in the highest bit decides; ties between axes
// go to Z, then Y, so X varies fastest.
//
// Coordinates are compared as unsigned bit patterns: a negative coordinate
// sorts after every non-negative one on its axis.
func CompareZOrder(l, r [3]int64) int {
	msd := 2
	for _, dim := range [...]int{1, 0} {
		if lessMSB(uint64(l[msd]^r[msd]), uint64(l[dim]^r[dim])) {
			msd = dim
		}
	}
	return cmp.Compare(uint64(l[msd]), uint64(r[msd]))
}

// lessMSB reports whether the highest set bit of x is below that of y.
func lessMSB(x, y uint64) bool {
	return x < y && x < x^y
}
