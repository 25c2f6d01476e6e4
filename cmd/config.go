package cmd

import (
	"fmt"
	"os"

	"github.com/audiolibrelab/voicememo/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and manage VoiceMemo configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		if cfg.File != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.File)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "# defaults (no config file)\n")
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		configPath := cfgFile
		if configPath == "" {
			configPath = config.DefaultPath()
		}
		if _, err := os.Stat(configPath); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
		}

		if err := config.Default().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
