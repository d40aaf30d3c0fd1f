package mesh

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/formats"
)

// Decimator reduces a mesh to roughly fraction of its vertices. The result
// carries no normals. Implementations live in internal/decimate.
type Decimator interface {
	Decimate(ctx context.Context, in *formats.MeshData, fraction float64) (*formats.MeshData, error)
}

// minDecimatedFaces is the smallest face count decimators accept as a target.
const minDecimatedFaces = 4

// Simplify decimates the mesh in place. Requests that would not reduce the
// mesh, or would leave minDecimatedFaces faces or fewer, are skipped; in that
// case normals are only computed if missing. Otherwise normals are
// recomputed on the decimated mesh and degenerate faces are removed.
func (m *Mesh) Simplify(ctx context.Context, d Decimator, fraction float64) error {
	if fraction <= 0 || fraction > 1 {
		return fmt.Errorf("simplify fraction out of range: %v", fraction)
	}
	faces := m.FaceCount()
	if fraction == 1 || float64(faces)*fraction <= minDecimatedFaces {
		if !m.HasNormals() {
			m.RecomputeNormals(true)
		}
		return nil
	}

	in := m.toFileOrder()
	in.Normals = nil
	out, err := d.Decimate(ctx, in, fraction)
	if err != nil {
		return err
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("decimated mesh: %w", err)
	}

	s := m.raw()
	s.vertices = reverseAxes(out.Vertices)
	s.faces = out.Faces
	s.normals = nil
	m.RecomputeNormals(true)

	logger.Named("simplify").Debug("decimated mesh",
		zap.Float64("fraction", fraction),
		zap.Int("faces_before", faces),
		zap.Int("faces_after", len(s.faces)))
	return nil
}
