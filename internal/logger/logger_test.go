package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultLoggerIsUsableBeforeInit(t *testing.T) {
	// Library code logs without Init; it must not panic.
	Named("mesh").Info("no sink yet", zap.Int("vertices", 3))
	Warn("still no sink")
}

func TestLogRotation(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "volmesh.log")

	rot := Rotation{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 2,
		MaxAgeDays: 1,
		Compress:   false,
	}
	if err := Setup("debug", rot, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer Sync()

	payload := strings.Repeat("v", 200)
	for i := 0; i < 15000; i++ {
		Sugar.Infof("fragment %d: %s", i, payload)
	}
	Sync()

	files, err := os.ReadDir(filepath.Dir(logFile))
	if err != nil {
		t.Fatalf("failed to read log dir: %v", err)
	}

	rotated := 0
	for _, f := range files {
		name := f.Name()
		if !strings.HasPrefix(name, "volmesh") {
			continue
		}
		if name != "volmesh.log" {
			rotated++
			if !strings.Contains(name, "-20") {
				t.Errorf("rotated file %s doesn't carry a timestamp", name)
			}
		}
	}
	if rotated == 0 {
		t.Error("no rotated files found")
	}
}

func TestLogLevels(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{level: "error", expected: []string{"ERROR"}, excluded: []string{"WARN", "INFO", "DEBUG"}},
		{level: "warn", expected: []string{"ERROR", "WARN"}, excluded: []string{"INFO", "DEBUG"}},
		{level: "info", expected: []string{"ERROR", "WARN", "INFO"}, excluded: []string{"DEBUG"}},
		{level: "debug", expected: []string{"ERROR", "WARN", "INFO", "DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(dir, tt.level+".log")
			if err := Setup(tt.level, Rotation{Path: logFile, MaxSizeMB: 10}, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			out := string(content)

			for _, exp := range tt.expected {
				if !strings.Contains(out, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(out, exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestNamedComponent(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "named.log")
	if err := Setup("info", Rotation{Path: logFile, MaxSizeMB: 10}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	Named("stitch").Info("stitched", zap.Int("duplicates", 2))
	Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"component":"stitch"`) {
		t.Errorf("expected component name in output, got %s", content)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultRotation(t *testing.T) {
	rot := DefaultRotation("/tmp/volmesh.log")

	if rot.Path != "/tmp/volmesh.log" {
		t.Errorf("expected path /tmp/volmesh.log, got %s", rot.Path)
	}
	if rot.MaxSizeMB != 100 {
		t.Errorf("expected MaxSizeMB 100, got %d", rot.MaxSizeMB)
	}
	if rot.MaxBackups != 5 {
		t.Errorf("expected MaxBackups 5, got %d", rot.MaxBackups)
	}
	if rot.MaxAgeDays != 14 {
		t.Errorf("expected MaxAgeDays 14, got %d", rot.MaxAgeDays)
	}
	if !rot.Compress {
		t.Error("expected Compress to be true")
	}
}
