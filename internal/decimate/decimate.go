// Package decimate reduces triangle meshes with external quadric
// simplification tools.
//
// Backends share one contract: reduce a mesh to a fraction of its vertices
// and return it without normals. The backend is chosen by configuration.
package decimate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/Faultbox/volmesh/pkg/formats"
)

// Decimation errors.
var (
	ErrDecimateTimeout  = errors.New("decimation timed out")
	ErrDecimateFailed   = errors.New("decimation tool failed")
	ErrUnknownBackend   = errors.New("unknown decimation backend")
	ErrPipeNotSupported = errors.New("named pipes are not supported on this platform")
)

// Backend names accepted by New.
const (
	BackendFile = "fqms"      // fq-mesh-simplify on temporary files
	BackendPipe = "fqms-pipe" // fq-mesh-simplify on named pipes
)

// DefaultExecutable is the Fast-Quadric-Mesh-Simplification binary name.
const DefaultExecutable = "fq-mesh-simplify"

// Decimator reduces a mesh to roughly fraction of its vertices.
type Decimator interface {
	Decimate(ctx context.Context, in *formats.MeshData, fraction float64) (*formats.MeshData, error)
}

// New returns the decimator for a backend name. A zero timeout disables the
// deadline.
func New(backend, executable string, timeout time.Duration) (Decimator, error) {
	if executable == "" {
		executable = DefaultExecutable
	}
	tool := Tool{Executable: executable, Timeout: timeout}
	switch backend {
	case BackendFile, "":
		return &FileDecimator{Tool: tool}, nil
	case BackendPipe:
		return newPipeDecimator(tool)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Tool describes how to run the external simplifier, invoked as
// `<Executable> <input.obj> <output.obj> <fraction>`.
type Tool struct {
	Executable string
	Timeout    time.Duration
}

func (t Tool) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.Timeout > 0 {
		return context.WithTimeout(ctx, t.Timeout)
	}
	return context.WithCancel(ctx)
}

func (t Tool) command(ctx context.Context, in, out string, fraction float64, stderr *bytes.Buffer) *exec.Cmd {
	cmd := exec.CommandContext(ctx, t.Executable, in, out, strconv.FormatFloat(fraction, 'g', -1, 64))
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	return cmd
}

// classify turns a failed run into ErrDecimateTimeout or ErrDecimateFailed.
func (t Tool) classify(ctx context.Context, cmd *exec.Cmd, err error, stderr *bytes.Buffer) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrDecimateTimeout, t.Executable, t.Timeout)
	}
	msg := bytes.TrimSpace(stderr.Bytes())
	if cmd.ProcessState != nil && !cmd.ProcessState.Success() {
		return fmt.Errorf("%w: %s exited with code %d: %s", ErrDecimateFailed, t.Executable, cmd.ProcessState.ExitCode(), msg)
	}
	return fmt.Errorf("%w: %s: %v: %s", ErrDecimateFailed, t.Executable, err, msg)
}

func parseOutput(data []byte) (*formats.MeshData, error) {
	out, err := formats.ParseOBJ(data)
	if err != nil {
		return nil, fmt.Errorf("%w: reading output: %v", ErrDecimateFailed, err)
	}
	out.Normals = nil
	return out, nil
}
