package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"inputswitch/internal/config"
	"inputswitch/internal/ddc"
	"inputswitch/internal/logger"
)

const oneShotTimeout = 15 * time.Second

var (
	configPath string
	logLevel   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "inputswitch [command]",
	Short: "Monitor input switching over DDC/CI",
	Long: `InputSwitch watches which input a monitor is showing, flips it between two
configured sources on a global hotkey, and can mute a mixer channel to follow
the active input. Works on Linux (ddcutil) and Windows (dxva2).`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the config file, applies command line flags and
// initializes logging. A missing file is not an error.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	missing := errors.Is(err, os.ErrNotExist)
	if err != nil && !missing {
		return config.Config{}, err
	}

	flagOverrides(cmd).Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}

	if missing {
		logger.Debug().Str("path", configPath).Msg("config file not found, using defaults")
	}

	return cfg, nil
}

// flagOverrides collects the persistent flags the user actually set.
func flagOverrides(cmd *cobra.Command) config.FlagOverrides {
	var o config.FlagOverrides
	if cmd.Flags().Changed("log-level") {
		o.LogLevel = &logLevel
	}
	if verbose {
		o.Verbose = &verbose
	}
	return o
}

// openBackend resolves and initializes the platform backend. The returned
// func releases it.
func openBackend(ctx context.Context, cfg config.Config) (ddc.Backend, func(), error) {
	resolver := ddc.NewDefaultResolver(cfg.BackendOptions(), logger.WithComponent("ddc"))

	backend, err := resolver.Backend(ctx)
	if err != nil {
		return nil, nil, err
	}

	release := func() {
		if closer, ok := backend.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	return backend, release, nil
}

// displayOrDefault picks the --display flag, then the configured display.
func displayOrDefault(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Display
}
