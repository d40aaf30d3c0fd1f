// Package formats provides codecs for the on-disk mesh formats: OBJ, ngmesh,
// Draco (drc) and the chunked custom_drc container.
//
// All codecs exchange MeshData, whose coordinates are in file order (X, Y, Z).
// Reversal to the engine's Z, Y, X storage happens in the mesh package.
package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// Format errors.
var (
	ErrUnknownFormat        = errors.New("unknown mesh format")
	ErrFaceIndexRange       = errors.New("face index out of range")
	ErrCodecUnavailable     = errors.New("draco codec unavailable")
	ErrNormalsCountMismatch = errors.New("normals count does not match vertex count")
)

// Format identifies a mesh serialization.
type Format int

const (
	FormatOBJ       Format = iota // ASCII Wavefront OBJ
	FormatDRC                     // Draco geometry blob
	FormatCustomDRC               // Draco blob with fragment metadata header
	FormatNGMesh                  // Flat binary vertex/face arrays
)

// Formats lists every supported format in tag order.
var Formats = []Format{FormatOBJ, FormatDRC, FormatCustomDRC, FormatNGMesh}

// String returns the format tag, which is also its file extension.
func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatDRC:
		return "drc"
	case FormatCustomDRC:
		return "custom_drc"
	case FormatNGMesh:
		return "ngmesh"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// ParseFormat resolves a format tag such as "obj" or ".ngmesh".
func ParseFormat(tag string) (Format, error) {
	t := strings.ToLower(strings.TrimPrefix(tag, "."))
	for _, f := range Formats {
		if f.String() == t {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, tag)
}

// FormatFromPath resolves the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return 0, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return f, nil
}

// MeshData is a decoded mesh in file axis order.
type MeshData struct {
	Vertices []pmath.Vec3 // X, Y, Z positions
	Faces    [][3]uint32  // Triangle vertex indices
	Normals  []pmath.Vec3 // Per-vertex normals, empty or len(Vertices)
}

// IsEmpty reports whether the mesh has no vertices.
func (m *MeshData) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Validate checks face indices and the normals count.
func (m *MeshData) Validate() error {
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d normals, %d vertices", ErrNormalsCountMismatch, len(m.Normals), len(m.Vertices))
	}
	n := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		if f[0] >= n || f[1] >= n || f[2] >= n {
			return fmt.Errorf("%w: face %d %v with %d vertices", ErrFaceIndexRange, i, f, n)
		}
	}
	return nil
}

// Decode parses a buffer in the given format. An empty buffer is an empty
// mesh in every format. For custom_drc the fragment metadata is returned too.
func Decode(data []byte, f Format, codec DracoCodec) (*MeshData, *FragmentMeta, error) {
	if len(data) == 0 {
		return &MeshData{}, nil, nil
	}
	switch f {
	case FormatOBJ:
		m, err := ParseOBJ(data)
		return m, nil, err
	case FormatNGMesh:
		m, err := ParseNGMesh(data)
		return m, nil, err
	case FormatDRC:
		if codec == nil {
			return nil, nil, ErrCodecUnavailable
		}
		m, err := codec.Decode(data)
		return m, nil, err
	case FormatCustomDRC:
		if codec == nil {
			return nil, nil, ErrCodecUnavailable
		}
		meta, payload, err := ParseCustomDRC(data)
		if err != nil {
			return nil, nil, err
		}
		m, err := codec.Decode(payload)
		if err != nil {
			return nil, nil, err
		}
		return m, &meta, nil
	default:
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
}
