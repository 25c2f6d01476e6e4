package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/audiolibrelab/voicememo/internal/storage"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordings, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		recordings, err := storage.NewOS(cfg.Recording.Directory).List()
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recordings)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "📁 %s\n", cfg.Recording.Directory)
		printRecordings(cmd.OutOrStdout(), recordings)
		return nil
	},
}

func printRecordings(out io.Writer, recordings []storage.Recording) {
	if len(recordings) == 0 {
		fmt.Fprintln(out, "No recordings yet")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRECORDED\tDURATION\tSIZE")
	for _, r := range recordings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Name, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration.Round(100*time.Millisecond), r.SizeHuman)
	}
	w.Flush()
}

func init() {
	listCmd.Flags().Bool("json", false, "print recordings as JSON")
}
