package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile   = flag.String("log-file", "", "Also write logs to this file")
	flagSimplify  = flag.Float64("simplify", 0, "Decimate to this fraction of vertices (0 = config value)")
	flagDecimator = flag.String("decimator", "", "Decimation backend (fqms, fqms-pipe)")
	flagSmooth    = flag.Int("smooth", -1, "Laplacian smoothing iterations (-1 = config value)")
	flagStitch    = flag.Bool("stitch", false, "Stitch duplicate vertices")
	flagFormat    = flag.String("format", "", "Output format (obj, drc, custom_drc, ngmesh)")
	flagBits      = flag.Int("bits", 0, "Quantization bits for chunked output")
	flagRescale   = flag.Float64("rescale", 0, "Vertex rescale factor")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagSimplify > 0 {
		cfg.Decimation.Fraction = *flagSimplify
	}
	if *flagDecimator != "" {
		cfg.Decimation.Backend = *flagDecimator
	}
	if *flagSmooth >= 0 {
		cfg.Mesh.SmoothIterations = *flagSmooth
	}
	if *flagStitch {
		cfg.Mesh.Stitch = true
	}
	if *flagFormat != "" {
		cfg.Mesh.OutputFormat = *flagFormat
	}
	if *flagBits > 0 {
		cfg.Chunk.QuantizationBits = *flagBits
	}
	if *flagRescale > 0 {
		cfg.Mesh.RescaleFactor = float32(*flagRescale)
	}
}
