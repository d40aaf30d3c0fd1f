package mesh

import (
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// StitchAdjacentFaces merges bit-identical vertices onto their first
// occurrence and rewrites the faces to use the canonical index.
//
// With dropUnused, vertices no longer referenced by any face are removed.
// With dropDuplicateFaces, faces with the same index set (compared after
// sorting each triple, so winding is ignored) are removed, keeping the first.
//
// Existing normals are invalid after stitching; if the mesh had normals they
// are recomputed. It returns false when no duplicate vertices were found, in
// which case the mesh is left untouched.
func (m *Mesh) StitchAdjacentFaces(dropUnused, dropDuplicateFaces bool) bool {
	needNormals := m.HasNormals()
	s := m.raw()

	mapping, dups := firstOccurrences(s.vertices)
	if dups == 0 {
		return false
	}

	s.normals = nil
	for i := range s.faces {
		f := &s.faces[i]
		f[0], f[1], f[2] = mapping[f[0]], mapping[f[1]], mapping[f[2]]
	}

	if dropUnused {
		m.DropUnusedVertices()
	}
	if dropDuplicateFaces {
		before := len(s.faces)
		s.faces = dropDuplicateTriples(s.faces)
		logger.Named("stitch").Debug("dropped duplicate faces",
			zap.Int("faces", before-len(s.faces)))
	}
	logger.Named("stitch").Debug("stitched mesh",
		zap.Int("duplicates", dups),
		zap.Int("vertices", len(s.vertices)),
		zap.Int("faces", len(s.faces)))

	if needNormals {
		m.RecomputeNormals(true)
	}
	return true
}

// firstOccurrences maps every vertex index to the index of the first vertex
// with the same bit pattern, and counts the vertices that were remapped.
func firstOccurrences(vertices []pmath.Vec3) ([]uint32, int) {
	mapping := make([]uint32, len(vertices))
	seen := make(map[[3]uint32]uint32, len(vertices))
	dups := 0
	for i, v := range vertices {
		key := [3]uint32{math.Float32bits(v[0]), math.Float32bits(v[1]), math.Float32bits(v[2])}
		if first, ok := seen[key]; ok {
			mapping[i] = first
			dups++
			continue
		}
		seen[key] = uint32(i)
		mapping[i] = uint32(i)
	}
	return mapping, dups
}

// DropUnusedVertices removes vertices (and their normals) that no face
// references. Face indices are shifted down by the number of removed
// vertices below them.
func (m *Mesh) DropUnusedVertices() {
	s := m.raw()

	used := make([]bool, len(s.vertices))
	for _, f := range s.faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}

	// shift[i] is the number of dropped vertices before i.
	shift := make([]uint32, len(s.vertices))
	var dropped uint32
	for i, u := range used {
		shift[i] = dropped
		if !u {
			dropped++
		}
	}
	if dropped == 0 {
		return
	}

	for i := range s.faces {
		f := &s.faces[i]
		f[0] -= shift[f[0]]
		f[1] -= shift[f[1]]
		f[2] -= shift[f[2]]
	}

	hasNormals := len(s.normals) == len(s.vertices) && len(s.normals) > 0
	kept := 0
	for i, u := range used {
		if !u {
			continue
		}
		s.vertices[kept] = s.vertices[i]
		if hasNormals {
			s.normals[kept] = s.normals[i]
		}
		kept++
	}
	s.vertices = s.vertices[:kept]
	if hasNormals {
		s.normals = s.normals[:kept]
	}
}

// dropDuplicateTriples removes faces whose sorted index triple was already
// seen, preserving the order of the remaining faces.
func dropDuplicateTriples(faces [][3]uint32) [][3]uint32 {
	seen := make(map[[3]uint32]struct{}, len(faces))
	out := faces[:0]
	for _, f := range faces {
		key := sortTriple(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

func sortTriple(t [3]uint32) [3]uint32 {
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	if t[1] > t[2] {
		t[1], t[2] = t[2], t[1]
	}
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	return t
}
