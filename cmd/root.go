package cmd

import (
	"fmt"
	"os"

	"github.com/audiolibrelab/voicememo/internal/config"
	"github.com/audiolibrelab/voicememo/internal/logging"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	backendName  string
	recordingDir string
	verboseLevel int
	logFile      *os.File
)

var rootCmd = &cobra.Command{
	Use:   "voicememo",
	Short: "Record and play back voice memos as raw PCM",
	Long: `VoiceMemo records the default microphone to raw PCM files
(mono, 16-bit little-endian, 44.1 kHz, no header) and plays them back
on the default output device.

Each recording is stored as <start-time-in-ms>.pcm in the recordings
directory. Recordings longer than the minimum duration are reported with
their length in seconds.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init writes the file Load would otherwise fail on
		if cmd == configInitCmd {
			return setupLogging("info", verboseLevel, "")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Command line flags override the file and the environment
		if cmd.Flags().Changed("backend") {
			cfg.Audio.Backend = backendName
		}
		if cmd.Flags().Changed("dir") {
			cfg.Recording.Directory = config.ExpandPath(recordingDir)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		return setupLogging(cfg.Log.Level, verboseLevel, cfg.Log.File)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/voicememo.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "audio backend: auto, malgo, portaudio, pipewire, null (overrides config)")
	rootCmd.PersistentFlags().StringVar(&recordingDir, "dir", "", "recordings directory (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=config log level, 1+=debug")

	// Add subcommands
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog from the config level and the verbose flag
func setupLogging(level string, verbose int, file string) error {
	f, err := logging.Configure(level, verbose, file, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logFile = f
	return nil
}
