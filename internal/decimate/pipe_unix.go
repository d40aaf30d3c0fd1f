//go:build unix

package decimate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/formats"
)

// PipeDecimator streams the mesh through two named pipes instead of staging
// files. A background goroutine feeds the input pipe while the caller drains
// the output pipe, so neither pipe buffer can fill up and stall the tool.
type PipeDecimator struct {
	Tool
	TempDir string // parent of the directory holding the pipes
}

func newPipeDecimator(t Tool) (Decimator, error) {
	return &PipeDecimator{Tool: t}, nil
}

// Decimate implements Decimator.
func (d *PipeDecimator) Decimate(ctx context.Context, in *formats.MeshData, fraction float64) (*formats.MeshData, error) {
	dir, err := os.MkdirTemp(d.TempDir, "decimate-pipe-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input.obj")
	outPath := filepath.Join(dir, "output.obj")
	for _, p := range []string{inPath, outPath} {
		if err := unix.Mkfifo(p, 0600); err != nil {
			return nil, fmt.Errorf("creating pipe %s: %w", p, err)
		}
	}

	ctx, cancel := d.context(ctx)
	defer cancel()

	var stderr bytes.Buffer
	cmd := d.command(ctx, inPath, outPath, fraction, &stderr)
	logger.Named("decimate").Debug("running decimator",
		zap.String("cmd", cmd.String()),
		zap.Int("faces", len(in.Faces)))

	// Every FIFO end is opened without blocking. The extra "hold" ends keep
	// our own reads and writes from seeing EOF or EPIPE before the tool has
	// opened its side; they are closed once the tool exits.
	outR, err := openFIFO(outPath, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer outR.Close()
	outHold, err := openFIFO(outPath, os.O_WRONLY)
	if err != nil {
		return nil, err
	}
	inHold, err := openFIFO(inPath, os.O_RDONLY)
	if err != nil {
		outHold.Close()
		return nil, err
	}
	inW, err := openFIFO(inPath, os.O_WRONLY)
	if err != nil {
		outHold.Close()
		inHold.Close()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		outHold.Close()
		inHold.Close()
		inW.Close()
		return nil, d.classify(ctx, cmd, err, &stderr)
	}

	var g errgroup.Group
	g.Go(func() error {
		w := bufio.NewWriter(inW)
		err := formats.WriteOBJ(w, in)
		if err == nil {
			err = w.Flush()
		}
		if cerr := inW.Close(); err == nil {
			err = cerr
		}
		return err
	})
	g.Go(func() error {
		err := cmd.Wait()
		outHold.Close()
		inHold.Close()
		return err
	})

	data, readErr := io.ReadAll(outR)
	if err := g.Wait(); err != nil {
		return nil, d.classify(ctx, cmd, err, &stderr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading output: %v", ErrDecimateFailed, readErr)
	}
	return parseOutput(data)
}

func openFIFO(path string, flag int) (*os.File, error) {
	f, err := os.OpenFile(path, flag|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening pipe %s: %w", path, err)
	}
	return f, nil
}
