// Command jobu runs the distributed batch scheduler described in
// SPEC_FULL.md: a cron dispatcher, a queue dispatcher, a worker pool, and
// an admin HTTP API, each runnable standalone or together in one process.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petabytecl/jobu/config"
	"github.com/petabytecl/jobu/config/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "jobu",
		Short:         "Distributed batch scheduler",
		Long:          "jobu dispatches cron-scheduled and queue-driven work to a claimed-execution worker pool, with an admin HTTP API over cron definitions and job history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// With no subcommand, run dispatcher + worker + admin together in
		// one process, per the CLI scaffolding's default posture.
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runAll(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")

	logCfg := logDefaultConfig()
	logCfg.Flags(root.PersistentFlags())

	root.AddCommand(newDispatcherCommand())
	root.AddCommand(newQueueDispatcherCommand())
	root.AddCommand(newWorkerCommand())
	root.AddCommand(newAdminCommand())

	return root
}

func newDispatcherCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "dispatcher",
		Short: "Run the cron dispatcher only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runDispatcher(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")
	return cmd
}

func newQueueDispatcherCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "queue-dispatcher",
		Short: "Run the queue dispatcher only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runQueueDispatcher(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")
	return cmd
}

func newWorkerCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the execution worker pool only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")
	return cmd
}

func newAdminCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Run the admin HTTP API only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runAdmin(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")
	return cmd
}

// loadConfig builds a config.Manager over the viper backend, binds the
// command's flags, and loads+validates an AppConfig from config file, the
// JOBU_* environment, and flags, in that increasing order of precedence.
func loadConfig(cmd *cobra.Command, configFile string) (AppConfig, error) {
	opts := []config.Option{
		config.WithBackend(viper.New()),
		config.WithName("config"),
		config.WithSearchPaths(".", "./config"),
		config.WithEnvPrefix("JOBU"),
	}
	opts = append(opts, configFileOptions(configFile)...)
	mgr := config.New(opts...)

	if err := mgr.BindFlags(cmd.Flags()); err != nil {
		return AppConfig{}, fmt.Errorf("jobu: bind flags: %w", err)
	}
	if err := mgr.BindFlags(cmd.Root().PersistentFlags()); err != nil {
		return AppConfig{}, fmt.Errorf("jobu: bind persistent flags: %w", err)
	}

	var cfg AppConfig
	if err := mgr.LoadInto(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("jobu: load config: %w", err)
	}
	return cfg, nil
}

// configFileOptions decomposes an explicit --config path into the
// name/search-path/type options of config.Manager. Empty path yields no
// options, leaving the caller's own name/search-path defaults in place.
func configFileOptions(path string) []config.Option {
	if path == "" {
		return nil
	}
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	opts := []config.Option{
		config.WithName(name),
		config.WithSearchPaths(filepath.Dir(path)),
	}
	if ext != "" {
		opts = append(opts, config.WithType(strings.TrimPrefix(ext, ".")))
	}
	return opts
}
