package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"inputswitch/internal/config"
	"inputswitch/internal/ipc"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.ExpandPath(configPath))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change one setting and reload the daemon",
	Long: fmt.Sprintf(`Writes one setting to the config file. Omitting the value clears it.
A running daemon is told to reload.

Keys: %v`, config.Keys),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		if err := cfg.Set(args[0], value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		switch err := ipc.Send(ctx, cfg.IPC.SocketPath, ipc.TypeReload, nil); {
		case err == nil:
			fmt.Fprintln(cmd.OutOrStdout(), "daemon reloaded")
		case errors.Is(err, ipc.ErrNotRunning):
		default:
			return fmt.Errorf("saved, but the daemon rejected the reload: %w", err)
		}

		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
