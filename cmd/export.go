package cmd

import (
	"fmt"

	"github.com/audiolibrelab/voicememo/internal/export"
	"github.com/audiolibrelab/voicememo/internal/storage"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [recording]",
	Short: "Write a recording out as a WAV file",
	Long: `Convert a raw recording into a WAV file that ordinary players open. The
raw recording is kept. Without an argument the newest recording is exported,
and without --output the WAV file is written next to it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		store := storage.NewOS(cfg.Recording.Directory)

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			latest, err := store.Latest()
			if err != nil {
				return err
			}
			name = latest.Name
		}

		path, err := export.New(store).Export(name, output)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "💾 Exported %s to %s\n", name, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "WAV file to write (default: next to the recording)")
}
