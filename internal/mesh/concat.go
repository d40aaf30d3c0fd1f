package mesh

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/formats"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// DebugDumpDir, when non-empty, receives OBJ dumps of the meshes involved in
// an inconsistent-normals failure during Concatenate. Dumping is best effort.
var DebugDumpDir string

// Concatenate merges meshes into a new mesh in input order. Face indices are
// offset by the number of vertices of the preceding meshes and the bounding
// box is the union of the input boxes.
//
// With keepNormals, either no mesh may carry normals or every mesh must have
// exactly one normal per vertex; anything else returns ErrInconsistentNormals.
// Without it, the result has no normals.
func Concatenate(meshes []*Mesh, keepNormals bool) (*Mesh, error) {
	var nverts, nfaces int
	for _, m := range meshes {
		nverts += m.VertexCount()
		nfaces += m.FaceCount()
	}

	withNormals := false
	if keepNormals {
		var err error
		if withNormals, err = verifyConcatenateInputs(meshes); err != nil {
			return nil, err
		}
	}

	vertices := make([]pmath.Vec3, 0, nverts)
	faces := make([][3]uint32, 0, nfaces)
	var normals []pmath.Vec3
	if withNormals {
		normals = make([]pmath.Vec3, 0, nverts)
	}
	box := pmath.EmptyBox()

	for _, m := range meshes {
		s := m.raw()
		offset := uint32(len(vertices))
		vertices = append(vertices, s.vertices...)
		if withNormals {
			normals = append(normals, s.normals...)
		}
		for _, f := range s.faces {
			faces = append(faces, [3]uint32{f[0] + offset, f[1] + offset, f[2] + offset})
		}
		box = box.Union(m.Box)
	}

	return &Mesh{
		Box:   box,
		state: &rawState{vertices: vertices, faces: faces, normals: normals},
	}, nil
}

// verifyConcatenateInputs reports whether the meshes all carry normals, or
// returns ErrInconsistentNormals if only some of them do.
func verifyConcatenateInputs(meshes []*Mesh) (bool, error) {
	anyNormals := false
	mismatches := 0
	for _, m := range meshes {
		n := len(m.Normals())
		if n > 0 {
			anyNormals = true
		}
		if n != m.VertexCount() {
			mismatches++
		}
	}
	if !anyNormals {
		return false, nil
	}
	if mismatches == 0 {
		return true, nil
	}

	err := fmt.Errorf("%w: %d mismatches out of %d meshes", ErrInconsistentNormals, mismatches, len(meshes))
	if DebugDumpDir != "" {
		dumpMismatchedMeshes(meshes)
	}
	return false, err
}

// dumpMismatchedMeshes writes the first mesh with a wrong normals count, the
// first mesh missing normals and the first consistent mesh.
func dumpMismatchedMeshes(meshes []*Mesh) {
	log := logger.Named("concat")
	bad, missing, matching := -1, -1, -1
	for i, m := range meshes {
		n, v := len(m.Normals()), m.VertexCount()
		switch {
		case n != v && n != 0 && bad < 0:
			bad = i
		case n != v && n == 0 && missing < 0:
			missing = i
		case n == v && n > 0 && matching < 0:
			matching = i
		}
	}

	if err := os.MkdirAll(DebugDumpDir, 0755); err != nil {
		log.Warn("cannot create dump dir", zap.String("dir", DebugDumpDir), zap.Error(err))
		return
	}
	for _, d := range []struct {
		kind  string
		index int
	}{{"bad-normals", bad}, {"missing-normals", missing}, {"matching", matching}} {
		if d.index < 0 {
			continue
		}
		m := meshes[d.index]
		name := fmt.Sprintf("%s-%d-v%d-n%d-%s.obj", d.kind, d.index, m.VertexCount(), len(m.Normals()), uuid.NewString())
		path := filepath.Join(DebugDumpDir, name)
		if err := os.WriteFile(path, formats.EncodeOBJ(m.toFileOrder()), 0644); err != nil {
			log.Warn("cannot dump mesh", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Info("dumped mesh", zap.String("kind", d.kind), zap.String("path", path))
	}
}
