package mesh

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	pmath "github.com/Faultbox/volmesh/pkg/math"
	"github.com/Faultbox/volmesh/pkg/volume"
)

// Surfacer extracts a closed surface from a binary volume. Positions are in
// Z, Y, X voxel units of the given volume with the origin at the corner of
// voxel (0, 0, 0). Normals may be empty.
type Surfacer interface {
	Surface(vol *volume.Binary) (vertices []pmath.Vec3, faces [][3]uint32, normals []pmath.Vec3, err error)
}

// FromBinaryVolume surfaces vol and places the result into fullres, the box
// the volume covers at full resolution (the zero Box means the volume's own
// extent). The volume may be downsampled; the scale is inferred from the
// ratio of the two shapes.
//
// An all-foreground or all-background volume yields an empty mesh that keeps
// the box and fragment.
func FromBinaryVolume(vol *volume.Binary, fullres volume.Box, frag *Fragment, s Surfacer) (*Mesh, error) {
	if fullres.IsZero() {
		fullres = volume.Box{Max: vol.Shape}
	}
	box := intBox(fullres)

	if vol.Uniform() {
		m := Empty()
		m.Box = box
		m.Fragment = frag
		return m, nil
	}

	vertices, faces, normals, err := s.Surface(vol)
	if err != nil {
		return nil, fmt.Errorf("surfacing volume: %w", err)
	}

	shape := fullres.Shape()
	var res, off pmath.Vec3
	for a := 0; a < 3; a++ {
		res[a] = float32(shape[a] / vol.Shape[a])
		off[a] = float32(fullres.Min[a])
	}
	for i, v := range vertices {
		vertices[i] = pmath.Vec3{v[0]*res[0] + off[0], v[1]*res[1] + off[1], v[2]*res[2] + off[2]}
	}

	m, err := NewWithBox(vertices, faces, normals, box)
	if err != nil {
		return nil, err
	}
	m.Fragment = frag
	return m, nil
}

// FromLabelVolume surfaces each label of a segmentation volume separately.
// When wanted is nil every nonzero label is processed. Each label is cropped
// to its bounding box plus a one-voxel halo before surfacing. Labels absent
// from the volume map to nil.
func FromLabelVolume(labels *volume.Labels, fullres volume.Box, wanted []uint64, s Surfacer) (map[uint64]*Mesh, error) {
	if wanted == nil {
		for _, l := range labels.Unique() {
			if l != 0 {
				wanted = append(wanted, l)
			}
		}
		slices.Sort(wanted)
	}

	var res [3]int
	for a := 0; a < 3; a++ {
		res[a] = 1
	}
	if !fullres.IsZero() {
		shape := fullres.Shape()
		for a := 0; a < 3; a++ {
			res[a] = shape[a] / labels.Shape[a]
		}
	}

	log := logger.Named("surface")
	meshes := make(map[uint64]*Mesh, len(wanted))
	for _, label := range wanted {
		mask := labels.Mask(label)
		sub := volume.NonzeroBox(mask)
		if sub.IsZero() {
			meshes[label] = nil
			continue
		}
		for a := 0; a < 3; a++ {
			sub.Min[a] = max(0, sub.Min[a]-1)
			sub.Max[a] = min(mask.Shape[a], sub.Max[a]+1)
		}

		var subFull volume.Box
		for a := 0; a < 3; a++ {
			subFull.Min[a] = fullres.Min[a] + sub.Min[a]*res[a]
			subFull.Max[a] = fullres.Min[a] + sub.Max[a]*res[a]
		}

		m, err := FromBinaryVolume(mask.Extract(sub), subFull, nil, s)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", label, err)
		}
		log.Debug("surfaced label",
			zap.Uint64("label", label),
			zap.Int("vertices", m.VertexCount()),
			zap.Int("faces", m.FaceCount()))
		meshes[label] = m
	}
	return meshes, nil
}

// FromBinaryBlocks surfaces each block into its full-resolution box and
// concatenates the results. With stitch, vertices shared across block
// boundaries are merged.
func FromBinaryBlocks(blocks []*volume.Binary, boxes []volume.Box, stitch bool, s Surfacer) (*Mesh, error) {
	if len(blocks) != len(boxes) {
		return nil, fmt.Errorf("got %d boxes for %d blocks", len(boxes), len(blocks))
	}
	meshes := make([]*Mesh, len(blocks))
	for i, b := range blocks {
		m, err := FromBinaryVolume(b, boxes[i], nil, s)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		meshes[i] = m
	}
	m, err := Concatenate(meshes, true)
	if err != nil {
		return nil, err
	}
	if stitch {
		m.StitchAdjacentFaces(true, true)
	}
	return m, nil
}

func intBox(b volume.Box) pmath.Box {
	var out pmath.Box
	for a := 0; a < 3; a++ {
		out.Min[a] = int32(b.Min[a])
		out.Max[a] = int32(b.Max[a])
	}
	return out
}
