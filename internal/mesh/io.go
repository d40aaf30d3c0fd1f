package mesh

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/pkg/bundle"
	"github.com/Faultbox/volmesh/pkg/formats"
)

// FromFile loads a mesh, choosing the format from the file extension.
// A zero-byte file is an empty mesh.
func FromFile(path string) (*Mesh, error) {
	f, err := formats.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh: %w", err)
	}
	m, err := FromBuffer(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FromBuffer decodes a serialized mesh. An empty buffer is an empty mesh.
// custom_drc metadata is restored into Fragment.
func FromBuffer(data []byte, f formats.Format) (*Mesh, error) {
	md, meta, err := formats.Decode(data, f, defaultCodec)
	if err != nil {
		return nil, err
	}
	m, err := New(reverseAxes(md.Vertices), md.Faces, reverseAxes(md.Normals))
	if err != nil {
		return nil, err
	}
	if meta != nil {
		var frag Fragment
		for a := 0; a < 3; a++ {
			frag.Shape[a] = float64(meta.Shape[2-a])
			frag.Origin[a] = float64(meta.Origin[2-a])
		}
		m.Fragment = &frag
	}
	return m, nil
}

// FromDirectory loads every mesh file in dir, in name order, and
// concatenates them.
func FromDirectory(dir string, keepNormals bool) (*Mesh, error) {
	var paths []string
	for _, f := range formats.Formats {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+f.Ext()))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	meshes := make([]*Mesh, 0, len(paths))
	for _, p := range paths {
		m, err := FromFile(p)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}
	return Concatenate(meshes, keepNormals)
}

// FromArchive decodes every mesh member of a tar bundle. Members that are not
// mesh files or are empty are ignored; members that fail to decode are logged
// and skipped. The returned names are in member name order.
func FromArchive(a *bundle.Archive) ([]string, map[string]*Mesh) {
	log := logger.Named("bundle")
	names := make([]string, 0, len(a.List()))
	meshes := make(map[string]*Mesh)
	for _, e := range a.Entries() {
		f, err := formats.ParseFormat(e.Ext())
		if err != nil || e.Size == 0 {
			continue
		}
		m, err := FromBuffer(e.Data(), f)
		if err != nil {
			log.Error("could not decode member, skipping",
				zap.String("member", e.Name),
				zap.String("size", humanize.Bytes(uint64(e.Size))),
				zap.Error(err))
			continue
		}
		names = append(names, e.Name)
		meshes[e.Name] = m
	}
	return names, meshes
}

// FromTarfile loads a tar bundle from disk and concatenates its meshes.
func FromTarfile(path string, keepNormals bool) (*Mesh, error) {
	a, err := bundle.Open(path)
	if err != nil {
		return nil, err
	}
	return concatenateArchive(a, keepNormals)
}

// FromTarBytes is FromTarfile for an in-memory archive.
func FromTarBytes(data []byte, keepNormals bool) (*Mesh, error) {
	a, err := bundle.FromBytes(data)
	if err != nil {
		return nil, err
	}
	return concatenateArchive(a, keepNormals)
}

func concatenateArchive(a *bundle.Archive, keepNormals bool) (*Mesh, error) {
	names, byName := FromArchive(a)
	meshes := make([]*Mesh, len(names))
	for i, n := range names {
		meshes[i] = byName[n]
	}
	return Concatenate(meshes, keepNormals)
}

// Serialize encodes the mesh. An empty mesh encodes to no bytes in every
// format. drc and custom_drc compute normals first when they are missing,
// and reuse the cached blob if the mesh is already compressed that way.
func (m *Mesh) Serialize(f formats.Format) ([]byte, error) {
	if s, ok := m.state.(*dracoState); ok && !m.released {
		if len(s.blob) == 0 {
			return nil, nil
		}
		if (f == formats.FormatDRC && s.method == MethodDraco) ||
			(f == formats.FormatCustomDRC && s.method == MethodCustomDraco) {
			return s.blob, nil
		}
	}
	if m.VertexCount() == 0 {
		return nil, nil
	}

	switch f {
	case formats.FormatOBJ:
		return formats.EncodeOBJ(m.toFileOrder()), nil
	case formats.FormatNGMesh:
		return formats.EncodeNGMesh(m.toFileOrder()), nil
	case formats.FormatDRC, formats.FormatCustomDRC:
		return m.encodeDraco(f)
	default:
		return nil, fmt.Errorf("%w: %v", formats.ErrUnknownFormat, f)
	}
}

func (m *Mesh) encodeDraco(f formats.Format) ([]byte, error) {
	codec := m.codec()
	if codec == nil {
		return nil, formats.ErrCodecUnavailable
	}
	var meta formats.FragmentMeta
	if f == formats.FormatCustomDRC {
		if m.Fragment == nil {
			return nil, ErrNoFragment
		}
		meta = m.fragmentMeta(CustomDracoQuantizationBits)
	}
	if !m.HasNormals() {
		m.RecomputeNormals(true)
	}
	blob, err := codec.Encode(m.toFileOrder(), formats.DracoOptions{QuantizationBits: int(meta.QuantizationBits)})
	if err != nil {
		return nil, fmt.Errorf("draco encode: %w", err)
	}
	if f == formats.FormatCustomDRC {
		blob = formats.EncodeCustomDRC(meta, blob)
	}
	return blob, nil
}

// SerializeTo writes the mesh to path in the format given by its extension.
func (m *Mesh) SerializeTo(path string) error {
	f, err := formats.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := m.Serialize(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
