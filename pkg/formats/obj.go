package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	pmath "github.com/Faultbox/volmesh/pkg/math"
)

// OBJ format errors.
var (
	ErrInvalidOBJ    = errors.New("invalid OBJ data")
	ErrNonTriangular = errors.New("OBJ face is not a triangle")
)

// ParseOBJ parses ASCII Wavefront OBJ data. Only v, vn and f records are
// interpreted. Normals are kept when there is exactly one per vertex.
func ParseOBJ(data []byte) (*MeshData, error) {
	m := &MeshData{}
	var normals []pmath.Vec3

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, line, err)
			}
			m.Vertices = append(m.Vertices, v)
		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, line, err)
			}
			normals = append(normals, n)
		case "f":
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d has %d corners", ErrNonTriangular, line, len(fields)-1)
			}
			var face [3]uint32
			for i, corner := range fields[1:] {
				idx, err := parseFaceIndex(corner, len(m.Vertices))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, line, err)
				}
				face[i] = idx
			}
			m.Faces = append(m.Faces, face)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOBJ, err)
	}

	if len(normals) == len(m.Vertices) {
		m.Normals = normals
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseVec3(fields []string) (pmath.Vec3, error) {
	var v pmath.Vec3
	if len(fields) < 3 {
		return v, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

// parseFaceIndex reads the vertex part of "v", "v/t", "v//n" or "v/t/n".
// Negative indices are relative to the vertices read so far.
func parseFaceIndex(corner string, vertexCount int) (uint32, error) {
	if slash := strings.IndexByte(corner, '/'); slash >= 0 {
		corner = corner[:slash]
	}
	i, err := strconv.Atoi(corner)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		return uint32(i - 1), nil
	case i < 0 && vertexCount+i >= 0:
		return uint32(vertexCount + i), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrFaceIndexRange, i)
	}
}

// WriteOBJ writes the mesh as OBJ. Coordinates use the shortest decimal
// form that round-trips to the same float32.
func WriteOBJ(w io.Writer, m *MeshData) error {
	bw := bufio.NewWriterSize(w, 256*1024)
	buf := make([]byte, 0, 96)

	for _, v := range m.Vertices {
		buf = appendVec3(append(buf[:0], 'v'), v)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	withNormals := len(m.Normals) > 0 && len(m.Normals) == len(m.Vertices)
	if withNormals {
		for _, n := range m.Normals {
			buf = appendVec3(append(buf[:0], 'v', 'n'), n)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}

	for _, f := range m.Faces {
		buf = append(buf[:0], 'f')
		for _, idx := range f {
			buf = append(buf, ' ')
			buf = strconv.AppendUint(buf, uint64(idx)+1, 10)
			if withNormals {
				buf = append(buf, '/', '/')
				buf = strconv.AppendUint(buf, uint64(idx)+1, 10)
			}
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func appendVec3(buf []byte, v pmath.Vec3) []byte {
	for _, c := range v {
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, float64(c), 'g', -1, 32)
	}
	return append(buf, '\n')
}

// EncodeOBJ returns the OBJ encoding of m.
func EncodeOBJ(m *MeshData) []byte {
	var buf bytes.Buffer
	_ = WriteOBJ(&buf, m)
	return buf.Bytes()
}
