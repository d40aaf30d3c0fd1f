// Package surface turns binary volumes into triangle surfaces.
package surface

import (
	pmath "github.com/Faultbox/volmesh/pkg/math"
	"github.com/Faultbox/volmesh/pkg/volume"
)

// VoxelFaces emits the exposed faces of every foreground voxel as two
// triangles each. Corners shared between faces are emitted once, so the
// surface is already stitched. Coordinates are Z, Y, X with the origin at the
// outer corner of voxel (0, 0, 0).
//
// Faces are wound so their normals point out of the foreground.
type VoxelFaces struct {
	// CloseBoundary also emits faces where foreground touches the volume
	// edge. Without it, objects cut by the edge are left open there.
	CloseBoundary bool
}

// Surface implements mesh.Surfacer. Normals are left to the caller.
func (s VoxelFaces) Surface(vol *volume.Binary) ([]pmath.Vec3, [][3]uint32, []pmath.Vec3, error) {
	b := &builder{corners: make(map[[3]int32]uint32)}
	shape := vol.Shape

	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				if !vol.At(z, y, x) {
					continue
				}
				pos := [3]int{z, y, x}
				for p := 0; p < 3; p++ {
					for _, dir := range [2]int{-1, 1} {
						n := pos
						n[p] += dir
						if n[p] < 0 || n[p] >= shape[p] {
							if !s.CloseBoundary {
								continue
							}
						} else if vol.At(n[0], n[1], n[2]) {
							continue
						}
						b.addFace(pos, p, dir)
					}
				}
			}
		}
	}
	return b.vertices, b.faces, nil, nil
}

type builder struct {
	vertices []pmath.Vec3
	faces    [][3]uint32
	corners  map[[3]int32]uint32
}

func (b *builder) corner(c [3]int) uint32 {
	key := [3]int32{int32(c[0]), int32(c[1]), int32(c[2])}
	if i, ok := b.corners[key]; ok {
		return i
	}
	i := uint32(len(b.vertices))
	b.vertices = append(b.vertices, pmath.Vec3{float32(c[0]), float32(c[1]), float32(c[2])})
	b.corners[key] = i
	return i
}

// addFace adds the face of voxel pos perpendicular to axis p on side dir.
func (b *builder) addFace(pos [3]int, p, dir int) {
	a, q := (p+1)%3, (p+2)%3
	base := pos
	if dir > 0 {
		base[p]++
	}
	c1, c2, c3 := base, base, base
	c1[q]++
	c2[a]++
	c2[q]++
	c3[a]++

	i0, i1, i2, i3 := b.corner(base), b.corner(c1), b.corner(c2), b.corner(c3)
	if dir > 0 {
		b.faces = append(b.faces, [3]uint32{i0, i1, i2}, [3]uint32{i0, i2, i3})
	} else {
		b.faces = append(b.faces, [3]uint32{i0, i2, i1}, [3]uint32{i0, i3, i2})
	}
}
