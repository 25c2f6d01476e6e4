package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/audiolibrelab/voicememo/internal/config"
)

func TestExportCommand_Latest(t *testing.T) {
	cfg = config.Default()
	cfg.Recording.Directory = t.TempDir()

	for _, name := range []string{"1700000000000.pcm", "1700000005000.pcm"} {
		if err := os.WriteFile(filepath.Join(cfg.Recording.Directory, name), make([]byte, 400), 0644); err != nil {
			t.Fatalf("Failed to write recording: %v", err)
		}
	}

	var out bytes.Buffer
	exportCmd.SetOut(&out)
	if err := exportCmd.RunE(exportCmd, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	wavPath := filepath.Join(cfg.Recording.Directory, "1700000005000.wav")
	info, err := os.Stat(wavPath)
	if err != nil {
		t.Fatalf("Expected WAV next to the newest recording: %v", err)
	}
	if info.Size() <= 400 {
		t.Errorf("Expected header plus samples, got %d bytes", info.Size())
	}
	if !strings.Contains(out.String(), "Exported 1700000005000.pcm") {
		t.Errorf("Expected export message, got: %s", out.String())
	}
}
