package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvfile/pkg/config"
	"github.com/ssargent/kvfile/pkg/logging"
	"github.com/ssargent/kvfile/pkg/store"
)

var log = logging.For("cli")

// rootOptions holds global flags and the resolved configuration
type rootOptions struct {
	configPath string
	database   string
	backend    string
	logLevel   string

	config *config.Config
}

// NewRootCommand creates the root command for the kvfile CLI
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kvfile",
		Short: "kvfile - single-file key/value store",
		Long: `kvfile stores key/value pairs in a single file. Every record carries a
CRC32 checksum, and every command reads and verifies the whole file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd, true)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.database, "database", "d", "", "Database file (default from config, ./kvfile.db)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Storage backend: file, bolt or pebble")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file, .yaml or .toml (default "+config.GetDefaultConfigPath()+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	for _, op := range operations {
		cmd.AddCommand(newOperationCommand(opts, op))
	}
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newShellCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return ExitCode(err)
}

// resolve builds the effective configuration: defaults, then the config
// file (when load is set), then flags
func (o *rootOptions) resolve(cmd *cobra.Command, load bool) error {
	cfg := config.DefaultConfig()

	if load {
		path := o.configPath
		if path == "" && config.ConfigExists(config.GetDefaultConfigPath()) {
			path = config.GetDefaultConfigPath()
		}
		if path != "" {
			loaded, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			cfg = loaded
		}
	}

	flags := cmd.Flags()
	if flags.Changed("database") {
		cfg.Database = o.database
	}
	if flags.Changed("backend") {
		cfg.Backend = o.backend
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	o.config = cfg
	return nil
}

// withStore opens the configured store for a single operation
func (o *rootOptions) withStore(op string, fn func(kv *store.KVStore) error) error {
	kv, err := store.Open(o.config.StorageOptions())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	logger := log.With("op", op, "backend", o.config.Backend, "path", kv.Path())
	start := time.Now()

	err = fn(kv)
	if err != nil {
		switch ExitCode(err) {
		case ExitFailure, ExitCorrupt:
			logger.Warn("operation failed", "error", err, "duration", time.Since(start))
		default:
			logger.Debug("operation rejected", "error", err, "duration", time.Since(start))
		}
		return err
	}

	logger.Debug("operation completed", "duration", time.Since(start))
	return nil
}
