// meshtool builds, converts and inspects triangle meshes of segmented volumes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/volmesh/internal/config"
	"github.com/Faultbox/volmesh/internal/decimate"
	"github.com/Faultbox/volmesh/internal/logger"
	"github.com/Faultbox/volmesh/internal/mesh"
	"github.com/Faultbox/volmesh/internal/surface"
	"github.com/Faultbox/volmesh/pkg/bundle"
	"github.com/Faultbox/volmesh/pkg/formats"
	"github.com/Faultbox/volmesh/pkg/volume"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := newApp(cfg)
	if err != nil {
		fail(err)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "info":
		err = a.cmdInfo(rest)
	case "convert":
		err = a.cmdConvert(rest)
	case "concat", "cat":
		err = a.cmdConcat(rest)
	case "mesh":
		err = a.cmdMesh(rest)
	case "bricks":
		err = a.cmdBricks(rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fail(err)
	}
	logger.Sync()
}

func fail(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`meshtool - volume meshing utility

Usage:
  meshtool [global options] <command> [options]

Commands:
  info <mesh|dir|tar>...                          Show mesh statistics
  convert <in> <out>                              Load, post-process and write a mesh
  concat <out> <in>...                            Concatenate meshes, dirs and tar bundles
  mesh -shape z,y,x [options] <labels.raw> <out>  Mesh every label of a raw volume
  bricks -lod N [options] <out> <fragment>...     Group fragments into bricks

Global options:
  -config, -debug, -log-file, -simplify, -decimator, -smooth, -stitch,
  -format, -bits, -rescale

Examples:
  meshtool info fragments.tar
  meshtool -stitch -smooth 2 convert raw.obj smooth.ngmesh
  meshtool -format drc mesh -shape 64,64,64 -width 4 seg.raw meshes/
  meshtool -format custom_drc bricks -lod 1 lod1/ lod0.tar`)
}

// app holds the settings resolved from configuration.
type app struct {
	cfg       *config.Config
	format    formats.Format
	method    mesh.Method
	decimator mesh.Decimator // nil when decimation is off
}

func newApp(cfg *config.Config) (*app, error) {
	f, err := formats.ParseFormat(cfg.Mesh.OutputFormat)
	if err != nil {
		return nil, err
	}
	method, err := mesh.ParseMethod(cfg.Compression.Method)
	if err != nil {
		return nil, err
	}

	codec := formats.NewExecCodec(cfg.Compression.DracoEncoder, cfg.Compression.DracoDecoder)
	codec.QuantizationBits = cfg.Compression.DracoQuantize
	mesh.SetDefaultCodec(codec)
	mesh.DebugDumpDir = cfg.Mesh.DebugDumpDir

	a := &app{cfg: cfg, format: f, method: method}
	if cfg.Decimation.Fraction < 1 {
		d, err := decimate.New(cfg.Decimation.Backend, cfg.Decimation.Executable, cfg.Decimation.Timeout)
		if err != nil {
			return nil, err
		}
		a.decimator = d
	}
	return a, nil
}

// load reads a mesh file, a directory of mesh files or a tar bundle.
func (a *app) load(path string) (*mesh.Mesh, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var m *mesh.Mesh
	switch {
	case fi.IsDir():
		m, err = mesh.FromDirectory(path, a.cfg.Mesh.KeepNormals)
	case strings.EqualFold(filepath.Ext(path), ".tar"):
		m, err = mesh.FromTarfile(path, a.cfg.Mesh.KeepNormals)
	default:
		m, err = mesh.FromFile(path)
	}
	if err != nil {
		return nil, err
	}
	m.NormalsBatch = a.cfg.Mesh.NormalsBatch
	return m, nil
}

// process applies the configured post-processing steps in pipeline order.
func (a *app) process(ctx context.Context, m *mesh.Mesh) error {
	m.NormalsBatch = a.cfg.Mesh.NormalsBatch
	if a.cfg.Mesh.Stitch {
		m.StitchAdjacentFaces(true, true)
	}
	if a.decimator != nil {
		if err := m.Simplify(ctx, a.decimator, a.cfg.Decimation.Fraction); err != nil {
			return err
		}
	}
	if n := a.cfg.Mesh.SmoothIterations; n > 0 {
		m.LaplacianSmooth(n)
	}
	if f := a.cfg.Mesh.RescaleFactor; f != 0 && f != 1 {
		m.Rescale(f)
	}
	return nil
}

// hold compresses a finished mesh while the rest of the batch is built.
func (a *app) hold(m *mesh.Mesh, name string) {
	raw := m.UncompressedSize()
	size, err := m.Compress(a.method)
	if err != nil {
		logger.Warn("keeping mesh uncompressed",
			zap.String("mesh", name),
			zap.Stringer("method", a.method),
			zap.Error(err))
		return
	}
	logger.Debug("holding mesh",
		zap.String("mesh", name),
		zap.String("raw", humanize.Bytes(uint64(raw))),
		zap.String("held", humanize.Bytes(uint64(size))))
}

func (a *app) cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	members := fs.Bool("members", false, "List tar bundle members")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: meshtool info <mesh|dir|tar>...")
	}

	for _, path := range fs.Args() {
		m, err := a.load(path)
		if err != nil {
			return err
		}
		fmt.Printf("Mesh:      %s\n", path)
		printStats(m)

		size, err := m.Compress(a.method)
		if err != nil {
			fmt.Printf("Held:      unavailable (%v)\n", err)
		} else {
			fmt.Printf("Held:      %s (%s)\n", humanize.Bytes(uint64(size)), a.method)
		}

		if *members && strings.EqualFold(filepath.Ext(path), ".tar") {
			if err := printMembers(path); err != nil {
				return err
			}
		}
		fmt.Println()
	}
	return nil
}

func printStats(m *mesh.Mesh) {
	fmt.Printf("Vertices:  %s\n", humanize.Comma(int64(m.VertexCount())))
	fmt.Printf("Faces:     %s\n", humanize.Comma(int64(m.FaceCount())))
	fmt.Printf("Normals:   %t\n", m.HasNormals())
	if m.Box.IsEmpty() {
		fmt.Println("Box:       (empty)")
	} else {
		fmt.Printf("Box:       %v - %v (z, y, x)\n", m.Box.Min, m.Box.Max)
	}
	if m.Fragment != nil {
		fmt.Printf("Fragment:  shape %v origin %v\n", m.Fragment.Shape, m.Fragment.Origin)
	}
	fmt.Printf("Raw size:  %s\n", humanize.Bytes(uint64(m.UncompressedSize())))
}

func printMembers(path string) error {
	archive, err := bundle.Open(path)
	if err != nil {
		return err
	}
	names, meshes := mesh.FromArchive(archive)
	fmt.Printf("Members:   %d of %d decoded\n", len(names), len(archive.List()))
	for _, n := range names {
		m := meshes[n]
		fmt.Printf("  %-24s %10s vertices %10s faces\n", n,
			humanize.Comma(int64(m.VertexCount())), humanize.Comma(int64(m.FaceCount())))
	}
	return nil
}

func (a *app) cmdConvert(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: meshtool convert <in> <out>")
	}
	m, err := a.load(args[0])
	if err != nil {
		return err
	}
	if err := a.process(context.Background(), m); err != nil {
		return err
	}
	return a.write(m, args[1])
}

func (a *app) cmdConcat(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: meshtool concat <out> <in>...")
	}
	meshes := make([]*mesh.Mesh, 0, len(args)-1)
	for _, path := range args[1:] {
		m, err := a.load(path)
		if err != nil {
			return err
		}
		meshes = append(meshes, m)
	}
	m, err := mesh.Concatenate(meshes, a.cfg.Mesh.KeepNormals)
	if err != nil {
		return err
	}
	if err := a.process(context.Background(), m); err != nil {
		return err
	}
	return a.write(m, args[0])
}

func (a *app) write(m *mesh.Mesh, path string) error {
	if err := m.SerializeTo(path); err != nil {
		return err
	}
	logger.Info("wrote mesh",
		zap.String("path", path),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("faces", m.FaceCount()))
	return nil
}

func (a *app) cmdMesh(args []string) error {
	fs := flag.NewFlagSet("mesh", flag.ExitOnError)
	shapeFlag := fs.String("shape", "", "Volume shape z,y,x (required)")
	width := fs.Int("width", 8, "Bytes per label: 1, 2, 4 or 8")
	boxFlag := fs.String("box", "", "Full resolution box z0,y0,x0,z1,y1,x1 (default: volume extent)")
	labelsFlag := fs.String("labels", "", "Comma separated labels (default: all)")
	closeEdges := fs.Bool("close", false, "Close surfaces cut by the volume boundary")
	asTar := fs.Bool("tar", false, "Write a single tar bundle instead of a directory")
	fs.Parse(args)

	if fs.NArg() != 2 || *shapeFlag == "" {
		return errors.New("usage: meshtool mesh -shape z,y,x [options] <labels.raw> <out>")
	}
	shape, err := parseInts(*shapeFlag, 3)
	if err != nil {
		return fmt.Errorf("-shape: %w", err)
	}
	var full volume.Box
	if *boxFlag != "" {
		b, err := parseInts(*boxFlag, 6)
		if err != nil {
			return fmt.Errorf("-box: %w", err)
		}
		copy(full.Min[:], b[:3])
		copy(full.Max[:], b[3:])
	}
	var wanted []uint64
	if *labelsFlag != "" {
		for _, s := range strings.Split(*labelsFlag, ",") {
			l, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return fmt.Errorf("-labels: %w", err)
			}
			wanted = append(wanted, l)
		}
	}

	labels, err := volume.LoadLabels(fs.Arg(0), [3]int(shape), *width)
	if err != nil {
		return err
	}
	if full.IsZero() {
		full = volume.Box{Max: labels.Shape}
	}

	meshes, err := mesh.FromLabelVolume(labels, full, wanted, surface.VoxelFaces{CloseBoundary: *closeEdges})
	if err != nil {
		return err
	}

	ids := make([]uint64, 0, len(meshes))
	for id := range meshes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var frag mesh.Fragment
	for ax := 0; ax < 3; ax++ {
		frag.Shape[ax] = float64(full.Max[ax] - full.Min[ax])
		frag.Origin[ax] = float64(full.Min[ax])
	}

	ctx := context.Background()
	for _, id := range ids {
		m := meshes[id]
		if m == nil {
			logger.Warn("label not present in volume", zap.Uint64("label", id))
			continue
		}
		f := frag
		m.Fragment = &f
		if err := a.process(ctx, m); err != nil {
			return fmt.Errorf("label %d: %w", id, err)
		}
		a.hold(m, strconv.FormatUint(id, 10))
	}

	out := fs.Arg(1)
	files := make(map[string][]byte, len(ids))
	for _, id := range ids {
		if meshes[id] == nil {
			continue
		}
		data, err := meshes[id].Serialize(a.format)
		if err != nil {
			return fmt.Errorf("label %d: %w", id, err)
		}
		files[strconv.FormatUint(id, 10)+a.format.Ext()] = data
	}
	return writeOutputs(out, files, *asTar)
}

func (a *app) cmdBricks(args []string) error {
	fs := flag.NewFlagSet("bricks", flag.ExitOnError)
	lod := fs.Int("lod", -1, "Level of detail of the output bricks (required)")
	quantize := fs.Bool("quantize", false, "Map brick vertices onto the quantization grid")
	asTar := fs.Bool("tar", false, "Write a single tar bundle instead of a directory")
	fs.Parse(args)

	if fs.NArg() < 2 || *lod < 0 {
		return errors.New("usage: meshtool bricks -lod N [options] <out> <fragment>...")
	}

	var fragments []*mesh.Mesh
	for _, path := range fs.Args()[1:] {
		loaded, err := a.loadFragments(path)
		if err != nil {
			return err
		}
		fragments = append(fragments, loaded...)
	}
	counts := make([]int, len(fragments))
	for i, m := range fragments {
		counts[i] = m.VertexCount()
	}

	bricks, err := mesh.GroupBricks(fragments, counts, *lod, a.cfg.Chunk.HighestResLOD)
	if err != nil {
		return err
	}
	logger.Info("grouped fragments",
		zap.Int("fragments", len(fragments)),
		zap.Int("bricks", len(bricks)),
		zap.Int("lod", *lod))

	opts := mesh.TrimOptions{
		LOD:              *lod,
		QuantizationBits: a.cfg.Chunk.QuantizationBits,
		Subdivide:        a.cfg.Chunk.Subdivide,
	}
	files := make(map[string][]byte, len(bricks))
	for i, b := range bricks {
		if err := b.Trim(opts); err != nil {
			return fmt.Errorf("brick %d: %w", i, err)
		}
		if *quantize && b.VertexCount() > 0 {
			if err := b.Quantize(opts.QuantizationBits); err != nil {
				return fmt.Errorf("brick %d: %w", i, err)
			}
		}
		data, err := b.Serialize(a.format)
		if err != nil {
			return fmt.Errorf("brick %d: %w", i, err)
		}
		files[fmt.Sprintf("%d%s", i, a.format.Ext())] = data
	}
	return writeOutputs(fs.Arg(0), files, *asTar)
}

// loadFragments returns one mesh per file or tar member, keeping the
// fragment metadata of custom_drc inputs.
func (a *app) loadFragments(path string) ([]*mesh.Mesh, error) {
	if !strings.EqualFold(filepath.Ext(path), ".tar") {
		m, err := mesh.FromFile(path)
		if err != nil {
			return nil, err
		}
		return []*mesh.Mesh{m}, nil
	}
	archive, err := bundle.Open(path)
	if err != nil {
		return nil, err
	}
	names, byName := mesh.FromArchive(archive)
	out := make([]*mesh.Mesh, len(names))
	for i, n := range names {
		out[i] = byName[n]
	}
	return out, nil
}

// writeOutputs writes files into a directory, or as one tar bundle at path.
func writeOutputs(path string, files map[string][]byte, asTar bool) error {
	if asTar {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := bundle.Write(f, files); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	var total uint64
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(path, name), data, 0644); err != nil {
			return err
		}
		total += uint64(len(data))
	}
	logger.Info("wrote meshes",
		zap.String("dir", path),
		zap.Int("files", len(files)),
		zap.String("size", humanize.Bytes(total)))
	return nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
