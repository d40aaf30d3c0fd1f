package volume

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadLabels reads a raw little-endian label volume of the given Z, Y, X
// shape. bytesPerVoxel selects the label width: 1, 2, 4 or 8.
func ReadLabels(r io.Reader, shape [3]int, bytesPerVoxel int) (*Labels, error) {
	switch bytesPerVoxel {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("unsupported label width %d", bytesPerVoxel)
	}
	g := New[uint64](shape)
	buf := make([]byte, g.Len()*bytesPerVoxel)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading %d voxels: %v", ErrShapeMismatch, g.Len(), err)
	}
	for i := range g.Data {
		b := buf[i*bytesPerVoxel:]
		switch bytesPerVoxel {
		case 1:
			g.Data[i] = uint64(b[0])
		case 2:
			g.Data[i] = uint64(binary.LittleEndian.Uint16(b))
		case 4:
			g.Data[i] = uint64(binary.LittleEndian.Uint32(b))
		case 8:
			g.Data[i] = binary.LittleEndian.Uint64(b)
		}
	}
	return g, nil
}

// LoadLabels reads a raw label volume from a file.
func LoadLabels(path string, shape [3]int, bytesPerVoxel int) (*Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabels(f, shape, bytesPerVoxel)
}
