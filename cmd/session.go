package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/audiolibrelab/voicememo/internal/service"
	"github.com/audiolibrelab/voicememo/internal/stream"

	"github.com/spf13/cobra"
)

const sessionHelp = `Commands:
  r          start or stop recording
  p [name]   play the current recording, or name
  s          stop playback
  l          list recordings
  e [name]   export the newest recording, or name, as WAV
  i          show status
  q          quit
`

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Interactive record and playback session",
	Long: `Start an interactive session reading one-letter commands from stdin.
Recording and playback run in the background; outcomes are printed as
they arrive.

` + sessionHelp,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		c, err := openConsole(out)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprint(out, sessionHelp)
		lines := readLines(cmd.InOrStdin())
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-c.mailbox.Ready():
				c.mailbox.Drain()
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if quit := runSessionCommand(out, c.svc, line); quit {
					return nil
				}
			}
		}
	},
}

// runSessionCommand executes one input line and reports whether to quit.
func runSessionCommand(out io.Writer, svc service.Service, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "r", "record":
		status, _ := svc.GetStatus()
		if err := svc.ToggleRecording(); err != nil {
			if errors.Is(err, stream.ErrBusy) {
				fmt.Fprintln(out, "Playback in progress, stop it first (s)")
				return false
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		if status == service.StatusRecording {
			fmt.Fprintln(out, "⏹️  Recording stopped")
		} else {
			fmt.Fprintln(out, "🎙️  Recording...")
		}
	case "p", "play":
		var name string
		if len(fields) > 1 {
			name = fields[1]
		}
		if err := svc.Play(name); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		_, current := svc.GetStatus()
		fmt.Fprintf(out, "▶️  Playing %s\n", current)
	case "s", "stop":
		svc.StopPlayback()
	case "l", "list":
		recordings, err := svc.ListRecordings()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		printRecordings(out, recordings)
	case "e", "export":
		var name string
		if len(fields) > 1 {
			name = fields[1]
		}
		path, err := svc.ExportRecording(name, "")
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "💾 Exported to %s\n", path)
	case "i", "status":
		status, current := svc.GetStatus()
		fmt.Fprintf(out, "Status: %s\n", status)
		if current != "" {
			fmt.Fprintf(out, "Current recording: %s\n", current)
		}
		if lastError := svc.GetLastError(); lastError != "" {
			fmt.Fprintf(out, "Last error: %s\n", lastError)
		}
	case "q", "quit", "exit":
		return true
	case "h", "help", "?":
		fmt.Fprint(out, sessionHelp)
	default:
		fmt.Fprintf(out, "Unknown command %q\n", fields[0])
	}
	return false
}
