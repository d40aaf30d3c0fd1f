package mesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/formats"
	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// Method selects how Compress encodes the mesh buffers.
type Method int

const (
	MethodNone        Method = iota // Keep buffers as they are
	MethodLZ4                       // Lossless, three LZ4 frames compressed twice
	MethodDraco                     // Lossy, one Draco blob
	MethodCustomDraco               // Lossy, Draco blob with fragment metadata
)

// CustomDracoQuantizationBits is the position quantization used for custom_drc blobs.
const CustomDracoQuantizationBits = 10

// String returns the method name used in configuration.
func (c Method) String() string {
	switch c {
	case MethodNone:
		return "none"
	case MethodLZ4:
		return "lz4"
	case MethodDraco:
		return "draco"
	case MethodCustomDraco:
		return "custom_draco"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ParseMethod resolves a compression method name.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return MethodNone, nil
	case "lz4":
		return MethodLZ4, nil
	case "draco":
		return MethodDraco, nil
	case "custom_draco":
		return MethodCustomDraco, nil
	default:
		return 0, fmt.Errorf("unknown compression method: %q", name)
	}
}

// state is the tagged union of buffer representations. Exactly one variant
// is held at a time.
type state interface {
	isState()
}

type rawState struct {
	vertices []pmath.Vec3
	faces    [][3]uint32
	normals  []pmath.Vec3
}

// lz4State holds vertices, normals and faces, each LZ4-framed twice.
type lz4State struct {
	blobs [3][]byte
}

type dracoState struct {
	method Method
	blob   []byte
}

func (*rawState) isState()   {}
func (*lz4State) isState()   {}
func (*dracoState) isState() {}

var defaultCodec formats.DracoCodec

// SetDefaultCodec installs the Draco codec used by meshes without their own.
func SetDefaultCodec(c formats.DracoCodec) {
	defaultCodec = c
}

func (m *Mesh) codec() formats.DracoCodec {
	if m.Codec != nil {
		return m.Codec
	}
	return defaultCodec
}

// Compressed reports whether the buffers are currently encoded.
func (m *Mesh) Compressed() bool {
	_, raw := m.state.(*rawState)
	return !m.released && !raw
}

// Compress encodes the buffers with the given method and returns the
// approximate encoded size in bytes. Calling it again while already
// compressed with the same method returns the cached size. The raw buffers
// are restored transparently by the next accessor call.
func (m *Mesh) Compress(method Method) (int, error) {
	if m.released {
		panic(ErrReleased)
	}

	switch s := m.state.(type) {
	case *lz4State:
		if method == MethodLZ4 {
			return s.size(), nil
		}
	case *dracoState:
		if method == s.method {
			return len(s.blob), nil
		}
	}

	var (
		size int
		err  error
	)
	switch method {
	case MethodNone:
		return m.UncompressedSize(), nil
	case MethodLZ4:
		size, err = m.compressLZ4()
	case MethodDraco, MethodCustomDraco:
		size, err = m.compressDraco(method)
	default:
		return 0, fmt.Errorf("unknown compression method: %v", method)
	}
	if err != nil {
		return 0, err
	}

	logger.Named("mesh").Debug("compressed mesh",
		zap.Stringer("method", method),
		zap.String("size", humanize.Bytes(uint64(size))))
	return size, nil
}

func (m *Mesh) compressLZ4() (int, error) {
	s := m.raw()

	var st lz4State
	for i, flat := range [][]byte{vec3Bytes(s.vertices), vec3Bytes(s.normals), faceBytes(s.faces)} {
		once, err := lz4Frame(flat)
		if err != nil {
			return 0, err
		}
		// Frames are compressed twice.
		twice, err := lz4Frame(once)
		if err != nil {
			return 0, err
		}
		st.blobs[i] = twice
	}
	m.state = &st
	return st.size(), nil
}

func (m *Mesh) compressDraco(method Method) (int, error) {
	codec := m.codec()
	if codec == nil {
		return 0, formats.ErrCodecUnavailable
	}
	var meta formats.FragmentMeta
	if method == MethodCustomDraco {
		if m.Fragment == nil {
			return 0, ErrNoFragment
		}
		meta = m.fragmentMeta(CustomDracoQuantizationBits)
	}

	data := m.toFileOrder()
	blob, err := codec.Encode(data, formats.DracoOptions{QuantizationBits: int(meta.QuantizationBits)})
	if err != nil {
		return 0, fmt.Errorf("draco encode: %w", err)
	}
	if method == MethodCustomDraco {
		blob = formats.EncodeCustomDRC(meta, blob)
	}
	m.state = &dracoState{method: method, blob: blob}
	return len(blob), nil
}

// Decompress restores the raw buffers. It is a no-op when already uncompressed.
func (m *Mesh) Decompress() error {
	if m.released {
		panic(ErrReleased)
	}
	switch s := m.state.(type) {
	case *rawState:
		return nil
	case *lz4State:
		raw, err := s.decode()
		if err != nil {
			return err
		}
		m.state = raw
		return nil
	case *dracoState:
		codec := m.codec()
		if codec == nil {
			return formats.ErrCodecUnavailable
		}
		payload := s.blob
		if s.method == MethodCustomDraco {
			var err error
			if _, payload, err = formats.ParseCustomDRC(payload); err != nil {
				return err
			}
		}
		data, err := codec.Decode(payload)
		if err != nil {
			return fmt.Errorf("draco decode: %w", err)
		}
		m.state = &rawState{
			vertices: reverseAxes(data.Vertices),
			faces:    data.Faces,
			normals:  reverseAxes(data.Normals),
		}
		return nil
	default:
		panic(ErrNoRepresentation)
	}
}

// EncodedBytes returns the Draco blob while the mesh is Draco-compressed.
func (m *Mesh) EncodedBytes() ([]byte, bool) {
	s, ok := m.state.(*dracoState)
	if !ok {
		return nil, false
	}
	return s.blob, true
}

func (s *lz4State) size() int {
	return len(s.blobs[0]) + len(s.blobs[1]) + len(s.blobs[2])
}

func (s *lz4State) decode() (*rawState, error) {
	var flat [3][]byte
	for i, b := range s.blobs {
		once, err := lz4Unframe(b)
		if err != nil {
			return nil, err
		}
		if flat[i], err = lz4Unframe(once); err != nil {
			return nil, err
		}
	}
	return &rawState{
		vertices: bytesVec3(flat[0]),
		normals:  bytesVec3(flat[1]),
		faces:    bytesFaces(flat[2]),
	}, nil
}

func lz4Frame(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func lz4Unframe(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}

func vec3Bytes(v []pmath.Vec3) []byte {
	buf := make([]byte, 12*len(v))
	for i, x := range v {
		for j, c := range x {
			binary.LittleEndian.PutUint32(buf[12*i+4*j:], math.Float32bits(c))
		}
	}
	return buf
}

func bytesVec3(buf []byte) []pmath.Vec3 {
	if len(buf) == 0 {
		return nil
	}
	v := make([]pmath.Vec3, len(buf)/12)
	for i := range v {
		for j := 0; j < 3; j++ {
			v[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[12*i+4*j:]))
		}
	}
	return v
}

func faceBytes(f [][3]uint32) []byte {
	buf := make([]byte, 12*len(f))
	for i, x := range f {
		for j, c := range x {
			binary.LittleEndian.PutUint32(buf[12*i+4*j:], c)
		}
	}
	return buf
}

func bytesFaces(buf []byte) [][3]uint32 {
	if len(buf) == 0 {
		return nil
	}
	f := make([][3]uint32, len(buf)/12)
	for i := range f {
		for j := 0; j < 3; j++ {
			f[i][j] = binary.LittleEndian.Uint32(buf[12*i+4*j:])
		}
	}
	return f
}

// fragmentMeta converts the fragment to X, Y, Z codec metadata.
func (m *Mesh) fragmentMeta(bits int) formats.FragmentMeta {
	var meta formats.FragmentMeta
	for i := 0; i < 3; i++ {
		meta.Shape[i] = float32(m.Fragment.Shape[2-i])
		meta.Origin[i] = float32(m.Fragment.Origin[2-i])
	}
	meta.QuantizationBits = uint8(bits)
	return meta
}
