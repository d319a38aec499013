package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/ollama-updater/internal/config"
	"github.com/oshokin/ollama-updater/internal/service/setup"
)

var (
	// initConfigPath is where init writes the settings.
	initConfigPath string
	// initForce overwrites an existing settings file.
	initForce bool
	// initDecompressor selects the archive decompressor written to the settings.
	initDecompressor string

	// initCmd writes the default settings and checks the host.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write default settings and check the host prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			return setup.Run(cmd.Context(), &setup.Options{
				ConfigPath:   initConfigPath,
				Force:        initForce,
				Decompressor: initDecompressor,
				Stdout:       cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().StringVar(&initConfigPath, "config", config.DefaultConfigFilename, "path to write the configuration file")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initDecompressor, "decompressor", config.DecompressorZstd, "archive decompressor: zstd or builtin")
	rootCmd.AddCommand(initCmd)
}
