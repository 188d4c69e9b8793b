package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRotatingFile_Defaults(t *testing.T) {
	lj := RotatingFile(Config{File: "/tmp/followup.log"})
	if lj.MaxSize != 100 || lj.MaxBackups != 5 || lj.MaxAge != 28 || !lj.Compress {
		t.Errorf("unexpected defaults %+v", lj)
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "followup.log")
	logger := New(Config{Level: "info", File: path})

	logger.Debug().Msg("hidden")
	logger.Info().Str("patient", "P100").Msg("created")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"patient":"P100"`) {
		t.Errorf("expected info line in file, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line must be filtered at info level")
	}
}
