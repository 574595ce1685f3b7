/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/kvfile/pkg/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file holding the defaults, adjusted by any global
flags given on the command line. The file is written to --config, or to the
platform default location. A .toml extension selects TOML, anything else YAML.

Examples:
  kvfile init
  kvfile --database /var/lib/kvfile/store.db --backend bolt init
  kvfile --config ./kvfile.toml init --force`,
		Args: cobra.NoArgs,
		// An existing config file is not loaded; it is what init replaces.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.GetDefaultConfigPath()
			}

			if config.ConfigExists(path) && !force {
				cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			if err := config.SaveConfig(opts.config, path); err != nil {
				return err
			}

			log.Debug("config written", "path", path)
			cmd.Printf("Wrote config to %s\n", path)
			cmd.Printf("Database: %s (backend %s)\n", opts.config.Database, opts.config.Backend)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
