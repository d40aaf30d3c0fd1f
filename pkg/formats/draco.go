package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Draco errors.
var (
	ErrDracoTool             = errors.New("draco tool failed")
	ErrInvalidCustomDRCMagic = errors.New("invalid custom_drc magic: expected 'NGDR'")
	ErrTruncatedCustomDRC    = errors.New("truncated custom_drc data")
	ErrUnsupportedCustomDRC  = errors.New("unsupported custom_drc version")
)

// DracoOptions controls lossy Draco encoding.
type DracoOptions struct {
	QuantizationBits int // Position quantization bits (0 = codec default)
}

// DracoCodec encodes and decodes Draco geometry blobs. The codec is an
// external collaborator; the engine only relies on this contract.
type DracoCodec interface {
	Encode(m *MeshData, opts DracoOptions) ([]byte, error)
	Decode(data []byte) (*MeshData, error)
}

// ExecCodec runs Google's draco_encoder and draco_decoder command line tools,
// exchanging geometry with them through OBJ files in a scratch directory.
type ExecCodec struct {
	Encoder string // draco_encoder executable
	Decoder string // draco_decoder executable
	TempDir string // Scratch directory parent ("" = os.TempDir)

	// QuantizationBits is used when DracoOptions leaves it zero.
	QuantizationBits int
}

// NewExecCodec returns a codec using the given tool paths.
func NewExecCodec(encoder, decoder string) *ExecCodec {
	return &ExecCodec{Encoder: encoder, Decoder: decoder}
}

// Encode writes m as OBJ, runs draco_encoder on it and returns the blob.
func (c *ExecCodec) Encode(m *MeshData, opts DracoOptions) ([]byte, error) {
	dir, err := os.MkdirTemp(c.TempDir, "drc-enc-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.obj")
	out := filepath.Join(dir, "out.drc")
	if err := os.WriteFile(in, EncodeOBJ(m), 0644); err != nil {
		return nil, err
	}

	args := []string{"-i", in, "-o", out}
	bits := opts.QuantizationBits
	if bits == 0 {
		bits = c.QuantizationBits
	}
	if bits > 0 {
		args = append(args, "-qp", strconv.Itoa(bits))
	}
	if err := runTool(c.Encoder, args...); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// Decode writes the blob to disk, runs draco_decoder and parses its OBJ output.
func (c *ExecCodec) Decode(data []byte) (*MeshData, error) {
	dir, err := os.MkdirTemp(c.TempDir, "drc-dec-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.drc")
	out := filepath.Join(dir, "out.obj")
	if err := os.WriteFile(in, data, 0644); err != nil {
		return nil, err
	}
	if err := runTool(c.Decoder, "-i", in, "-o", out); err != nil {
		return nil, err
	}
	obj, err := os.ReadFile(out)
	if err != nil {
		return nil, err
	}
	return ParseOBJ(obj)
}

func runTool(name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrDracoTool, name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

const (
	customDRCMagic      = "NGDR"
	customDRCVersion    = 1
	customDRCHeaderSize = 4 + 4 + 12 + 12
)

// FragmentMeta is the chunk metadata carried by custom_drc blobs, in X, Y, Z order.
type FragmentMeta struct {
	Shape            [3]float32
	Origin           [3]float32
	QuantizationBits uint8
}

// ParseCustomDRC splits a custom_drc blob into its metadata and Draco payload.
//
// Layout (little-endian):
//
//	[4]byte   "NGDR"
//	uint8     version
//	uint8     quantization bits
//	[2]byte   reserved
//	float32x3 fragment shape
//	float32x3 fragment origin
//	...       drc payload
func ParseCustomDRC(data []byte) (FragmentMeta, []byte, error) {
	var meta FragmentMeta
	if len(data) < customDRCHeaderSize {
		return meta, nil, ErrTruncatedCustomDRC
	}
	if string(data[:4]) != customDRCMagic {
		return meta, nil, ErrInvalidCustomDRCMagic
	}
	if data[4] != customDRCVersion {
		return meta, nil, fmt.Errorf("%w: %d", ErrUnsupportedCustomDRC, data[4])
	}
	meta.QuantizationBits = data[5]
	off := 8
	for i := 0; i < 3; i++ {
		meta.Shape[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	for i := 0; i < 3; i++ {
		meta.Origin[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	return meta, data[off:], nil
}

// EncodeCustomDRC prefixes a Draco payload with fragment metadata.
func EncodeCustomDRC(meta FragmentMeta, payload []byte) []byte {
	buf := make([]byte, customDRCHeaderSize, customDRCHeaderSize+len(payload))
	copy(buf, customDRCMagic)
	buf[4] = customDRCVersion
	buf[5] = meta.QuantizationBits
	off := 8
	for _, v := range meta.Shape {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, v := range meta.Origin {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return append(buf, payload...)
}
