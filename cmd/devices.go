package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/audiolibrelab/voicememo/internal/audio"
	"github.com/audiolibrelab/voicememo/internal/service"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices of the configured backend",
	Long:  `List the capture and playback devices the configured backend can see. Recording and playback always use the default device of each direction.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer c.Close()

		return listDevices(cmd.OutOrStdout(), c.svc)
	},
}

// listDevices prints the devices of the service backend for both directions
func listDevices(out io.Writer, svc service.Service) error {
	fmt.Fprintf(out, "🎵 Audio Devices (%s, %s backend)\n", runtime.GOOS, svc.GetConfig().Audio.Backend)
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")

	for _, dir := range []audio.Direction{audio.Capture, audio.Playback} {
		devices, err := svc.ListDevices(dir)
		if err != nil {
			return fmt.Errorf("failed to get %s devices: %w", dir, err)
		}

		fmt.Fprintf(out, "📋 %s devices (%d found):\n", dir, len(devices))
		for i, device := range devices {
			marker := ""
			if device.IsDefault {
				marker = " (default)"
			}
			fmt.Fprintf(out, "  %d. %s%s\n", i+1, device.Name, marker)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "💡 Available backends:")
	for _, b := range audio.AvailableBackends() {
		fmt.Fprintf(out, " %s", b)
	}
	fmt.Fprintf(out, "\n  • Select with --backend or audio.backend in the config file\n")
	return nil
}
