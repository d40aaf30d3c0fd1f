package decimate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/formats"
)

// FileDecimator stages the mesh in a temporary directory and runs the tool
// on the files.
type FileDecimator struct {
	Tool
	TempDir string // parent of the scratch directory ("" = os.TempDir)
}

// Decimate implements Decimator.
func (d *FileDecimator) Decimate(ctx context.Context, in *formats.MeshData, fraction float64) (*formats.MeshData, error) {
	dir, err := os.MkdirTemp(d.TempDir, "decimate-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "undecimated.obj")
	outPath := filepath.Join(dir, "decimated.obj")
	if err := os.WriteFile(inPath, formats.EncodeOBJ(in), 0644); err != nil {
		return nil, err
	}

	ctx, cancel := d.context(ctx)
	defer cancel()

	var stderr bytes.Buffer
	cmd := d.command(ctx, inPath, outPath, fraction, &stderr)
	logger.Named("decimate").Debug("running decimator",
		zap.String("cmd", cmd.String()),
		zap.Int("faces", len(in.Faces)))
	if err := cmd.Run(); err != nil {
		return nil, d.classify(ctx, cmd, err, &stderr)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, err
	}
	return parseOutput(data)
}
