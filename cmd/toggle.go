package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"inputswitch/internal/automation"
	"inputswitch/internal/ddc"
	"inputswitch/internal/ipc"
	"inputswitch/internal/logger"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip between the main and second input",
	Long: `Asks the running daemon to toggle the configured display. Without a daemon
the toggle is performed directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
		defer cancel()

		var reply struct {
			Target int `json:"target"`
		}
		err = ipc.Send(ctx, cfg.IPC.SocketPath, ipc.TypeToggle, &reply)
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "Switching to input: %s\n", ddc.InputName(reply.Target))
			return nil
		case !errors.Is(err, ipc.ErrNotRunning):
			return err
		}
		logger.Debug().Err(err).Msg("daemon not reachable, toggling directly")

		snap := cfg.Snapshot()
		if !snap.CanSwitch() {
			return errors.New("display, main_input and second_input must be configured")
		}

		backend, release, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		loop := automation.NewLoop(backend, snap, nil, logger.WithComponent("toggle"))
		defer loop.Stop()

		// Read once so the toggle knows where it starts.
		loop.Tick(ctx)

		target, err := loop.Toggle(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Switching to input: %s\n", ddc.InputName(target))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}
