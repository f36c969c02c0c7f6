// Package cmd implements the lily CLI using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/projectlily/lily/internal/config"
	"github.com/projectlily/lily/internal/dependency"
	"github.com/projectlily/lily/internal/shared/cmdutils"
)

const version = "0.1.0"

var (
	configPath  string
	personaPath string
	verbose     bool
	logFormat   string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "lily",
	Short: cmdutils.Logo + " lily - an autonomous conversational agent",
	Long: cmdutils.Logo + " lily - an agent that thinks in a fixed cycle of action states, " +
		"remembers what it hears and talks to you over chat platforms",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.lily/config.json)")
	rootCmd.PersistentFlags().StringVarP(&personaPath, "agent", "a", "", "Agent persona file (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(cronCmd)
}

func setupLogging(_ *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch logFormat {
	case "text", "":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}

// loadConfig reads the config file with environment overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newContainer loads and validates the config and wires the services.
func newContainer(opts dependency.Options) (*config.Config, *dependency.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if opts.PersonaPath == "" {
		opts.PersonaPath = personaPath
	}
	c, err := dependency.New(cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}
