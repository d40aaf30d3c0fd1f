package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// ngmesh format errors.
var (
	ErrTruncatedNGMesh = errors.New("truncated ngmesh data")
)

// ParseNGMesh parses the flat binary ngmesh layout:
//
//	uint32          vertex count N
//	float32[N*3]    vertex positions, X Y Z
//	uint32[...]     face indices to end of data, 3 per triangle
//
// All values are little-endian.
func ParseNGMesh(data []byte) (*MeshData, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedNGMesh
	}
	n := int(binary.LittleEndian.Uint32(data))
	off := 4

	if n > (len(data)-off)/12 {
		return nil, fmt.Errorf("%w: %d vertices declared, %d bytes available", ErrTruncatedNGMesh, n, len(data)-off)
	}

	m := &MeshData{Vertices: make([]pmath.Vec3, n)}
	for i := range m.Vertices {
		for j := 0; j < 3; j++ {
			m.Vertices[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
	}

	rest := len(data) - off
	if rest%12 != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes do not form whole triangles", ErrTruncatedNGMesh, rest)
	}
	m.Faces = make([][3]uint32, rest/12)
	for i := range m.Faces {
		for j := 0; j < 3; j++ {
			m.Faces[i][j] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteNGMesh writes vertices and faces in ngmesh layout. Normals are not
// part of the format and are ignored.
func WriteNGMesh(w io.Writer, m *MeshData) error {
	buf := EncodeNGMesh(m)
	_, err := w.Write(buf)
	return err
}

// EncodeNGMesh returns the ngmesh encoding of m.
func EncodeNGMesh(m *MeshData) []byte {
	buf := make([]byte, 4+12*len(m.Vertices)+12*len(m.Faces))
	binary.LittleEndian.PutUint32(buf, uint32(len(m.Vertices)))
	off := 4
	for _, v := range m.Vertices {
		for _, c := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(c))
			off += 4
		}
	}
	for _, f := range m.Faces {
		for _, idx := range f {
			binary.LittleEndian.PutUint32(buf[off:], idx)
			off += 4
		}
	}
	return buf
}
