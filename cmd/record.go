package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiolibrelab/voicememo/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a voice memo from the default microphone",
	Long: `Record from the default input device until Enter or Ctrl+C is pressed,
or until --duration has elapsed. The recording is written to the
recordings directory as raw PCM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")
		slog.Debug("Record command started", "duration", duration)

		c, err := openConsole(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := c.svc.ToggleRecording(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		var timeout <-chan time.Time
		if duration > 0 {
			timeout = time.After(duration)
			fmt.Fprintf(cmd.OutOrStdout(), "🎙️  Recording for %s... press Enter or Ctrl+C to stop early\n", duration)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "🎙️  Recording... press Enter or Ctrl+C to stop\n")
		}

		waitForStop(ctx, readLines(cmd.InOrStdin()), timeout, c.mailbox.Ready())

		if status, _ := c.svc.GetStatus(); status == service.StatusRecording {
			slog.Info("Stopping recording...")
			if err := c.svc.ToggleRecording(); err != nil {
				return fmt.Errorf("failed to stop recording: %w", err)
			}
		}

		if err := c.wait(context.Background()); err != nil {
			return err
		}
		return c.failed
	},
}

// waitForStop returns on Ctrl+C, Enter, the timeout or a reported outcome.
// Closed input only means no Enter key is available.
func waitForStop(ctx context.Context, lines <-chan string, timeout <-chan time.Time, outcome <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-lines:
			if ok {
				return
			}
			slog.Debug("Input closed, waiting for timeout or interrupt")
			lines = nil
		case <-timeout:
			return
		case <-outcome:
			// Only a failure is reported while the capture is still running
			return
		}
	}
}

func init() {
	recordCmd.Flags().DurationP("duration", "d", 0, "stop automatically after this long (0 = until stopped)")
}
