// Package config handles meshing pipeline configuration loading and management.
package config

import "time"

// Config holds all pipeline settings.
type Config struct {
	Mesh        MeshConfig        `yaml:"mesh"`
	Compression CompressionConfig `yaml:"compression"`
	Decimation  DecimationConfig  `yaml:"decimation"`
	Chunk       ChunkConfig       `yaml:"chunk"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// MeshConfig holds mesh processing settings.
type MeshConfig struct {
	NormalsBatch     int     `yaml:"normals_batch"`     // Faces per face-normal batch
	SmoothIterations int     `yaml:"smooth_iterations"` // Laplacian passes (0 = none)
	Stitch           bool    `yaml:"stitch"`            // Merge duplicate vertices after load
	KeepNormals      bool    `yaml:"keep_normals"`      // Keep normals when concatenating
	DebugDumpDir     string  `yaml:"debug_dump_dir"`    // Where to dump inconsistent meshes ("" = off)
	OutputFormat     string  `yaml:"output_format"`     // obj, drc, custom_drc, ngmesh
	RescaleFactor    float32 `yaml:"rescale_factor"`    // Multiply vertices before writing
}

// CompressionConfig holds in-memory compression and Draco codec settings.
type CompressionConfig struct {
	Method        string `yaml:"method"`         // none, lz4, draco, custom_draco
	DracoEncoder  string `yaml:"draco_encoder"`  // Path to draco_encoder
	DracoDecoder  string `yaml:"draco_decoder"`  // Path to draco_decoder
	DracoQuantize int    `yaml:"draco_quantize"` // Position quantization bits for drc
}

// DecimationConfig selects and tunes the decimation backend.
type DecimationConfig struct {
	Backend    string        `yaml:"backend"`    // fqms or fqms-pipe
	Executable string        `yaml:"executable"` // Decimator binary
	Timeout    time.Duration `yaml:"timeout"`    // 0 = no timeout
	Fraction   float64       `yaml:"fraction"`   // Target vertex fraction (1 = off)
}

// ChunkConfig holds multi-resolution chunk assembly settings.
type ChunkConfig struct {
	QuantizationBits int  `yaml:"quantization_bits"`
	Subdivide        bool `yaml:"subdivide"`
	HighestResLOD    int  `yaml:"highest_res_lod"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Mesh: MeshConfig{
			NormalsBatch:  50_000,
			KeepNormals:   true,
			OutputFormat:  "obj",
			RescaleFactor: 1,
		},
		Compression: CompressionConfig{
			Method:        "lz4",
			DracoEncoder:  "draco_encoder",
			DracoDecoder:  "draco_decoder",
			DracoQuantize: 14,
		},
		Decimation: DecimationConfig{
			Backend:    "fqms",
			Executable: "fq-mesh-simplify",
			Timeout:    5 * time.Minute,
			Fraction:   1,
		},
		Chunk: ChunkConfig{
			QuantizationBits: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
