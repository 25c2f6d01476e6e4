package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/audiolibrelab/voicememo/internal/config"
)

func TestRecordCommand_ClosedInputKeepsDuration(t *testing.T) {
	cfg = config.Default()
	cfg.Audio.Backend = "null"
	cfg.Recording.Directory = t.TempDir()
	cfg.Recording.MinDuration = 20 * time.Millisecond

	if err := recordCmd.Flags().Set("duration", "300ms"); err != nil {
		t.Fatalf("Failed to set duration: %v", err)
	}
	t.Cleanup(func() { recordCmd.Flags().Set("duration", "0s") })

	var out bytes.Buffer
	recordCmd.SetOut(&out)
	recordCmd.SetIn(strings.NewReader(""))
	recordCmd.SetContext(context.Background())

	start := time.Now()
	if err := recordCmd.RunE(recordCmd, nil); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Expected recording to last the full duration, stopped after %s", elapsed)
	}
	if !strings.Contains(out.String(), "✅ Recorded") {
		t.Errorf("Expected a successful recording, got:\n%s", out.String())
	}
}

func TestWaitForStop_Enter(t *testing.T) {
	lines := make(chan string, 1)
	lines <- ""

	done := make(chan struct{})
	go func() {
		waitForStop(context.Background(), lines, nil, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Expected Enter to stop the wait")
	}
}
