package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func restoreDefault(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func TestConfigureLevels(t *testing.T) {
	tests := []struct {
		level   string
		verbose int
		debug   bool
		info    bool
		err     bool
	}{
		{level: "info", info: true},
		{level: "", info: true},
		{level: "debug", debug: true, info: true},
		{level: "WARN"},
		{level: "error"},
		{level: "none"},
		{level: "none", verbose: 1, debug: true, info: true},
		{level: "info", verbose: 2, debug: true, info: true},
		{level: "trace", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			restoreDefault(t)

			var buf bytes.Buffer
			f, err := Configure(tt.level, tt.verbose, "", &buf)
			if tt.err {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to configure: %v", err)
			}
			if f != nil {
				t.Error("Expected no log file")
			}

			ctx := context.Background()
			if got := slog.Default().Enabled(ctx, slog.LevelDebug); got != tt.debug {
				t.Errorf("Expected debug enabled=%v, got %v", tt.debug, got)
			}
			if got := slog.Default().Enabled(ctx, slog.LevelInfo); got != tt.info {
				t.Errorf("Expected info enabled=%v, got %v", tt.info, got)
			}
		})
	}
}

func TestConfigureWritesText(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	if _, err := Configure("info", 0, "", &buf); err != nil {
		t.Fatalf("Failed to configure: %v", err)
	}
	slog.Info("Recording started", "file", "1.pcm")

	if !strings.Contains(buf.String(), `msg="Recording started" file=1.pcm`) {
		t.Errorf("Unexpected log output: %s", buf.String())
	}
}

func TestConfigureLogFile(t *testing.T) {
	restoreDefault(t)

	logFile := filepath.Join(t.TempDir(), "logs", "voicememo.log")
	f, err := Configure("debug", 0, logFile, nil)
	if err != nil {
		t.Fatalf("Failed to configure: %v", err)
	}
	if f == nil {
		t.Fatal("Expected log file to be returned")
	}

	slog.Debug("Playback started", "file", "1.pcm")
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close log file: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("Expected a JSON record, got %q: %v", data, err)
	}
	if record["msg"] != "Playback started" || record["file"] != "1.pcm" {
		t.Errorf("Unexpected record: %v", record)
	}
}
