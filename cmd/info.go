package cmd

import (
	"fmt"

	"github.com/audiolibrelab/voicememo/internal/audio"
	"github.com/audiolibrelab/voicememo/internal/storage"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [recording]",
	Short: "Show details of a recording",
	Long:  `Display the path, size, duration and sample format of a recording. Without an argument the newest recording is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := storage.NewOS(cfg.Recording.Directory)

		var (
			rec *storage.Recording
			err error
		)
		if len(args) == 1 {
			rec, err = store.Stat(args[0])
		} else {
			rec, err = store.Latest()
		}
		if err != nil {
			return err
		}

		params := audio.DefaultParams()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "=== RECORDING ===\n")
		fmt.Fprintf(out, "name: %s\n", rec.Name)
		fmt.Fprintf(out, "path: %s\n", rec.Path)
		fmt.Fprintf(out, "recorded: %s\n", rec.StartedAt.Format("2006-01-02 15:04:05.000"))
		fmt.Fprintf(out, "duration: %s\n", rec.Duration)
		fmt.Fprintf(out, "size: %d bytes (%s)\n", rec.Size, rec.SizeHuman)

		fmt.Fprintf(out, "\n=== FORMAT ===\n")
		fmt.Fprintf(out, "encoding: raw PCM %s, no header\n", params.Format)
		fmt.Fprintf(out, "sample_rate: %d Hz\n", params.SampleRate)
		fmt.Fprintf(out, "channels: %d\n", params.Channels)
		fmt.Fprintf(out, "\nffplay -f %s -ar %d -ac %d %s\n", params.Format, params.SampleRate, params.Channels, rec.Path)
		return nil
	},
}
