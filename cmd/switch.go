package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"inputswitch/internal/ddc"
)

var switchDisplay string

var switchCmd = &cobra.Command{
	Use:   "switch [input]",
	Short: "Switch monitor input",
	Long:  "Switch the monitor to a specified input (hdmi1, dp2, usb-c, 0x11, ...).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := ddc.ParseInput(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		display := displayOrDefault(switchDisplay, cfg)
		if display == "" {
			return errors.New("no display given; pass --display or set one with 'config set display <id>'")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
		defer cancel()

		backend, release, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		if err := backend.WriteFeature(ctx, display, ddc.InputSourceCode, input); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Switching display %s to input: %s\n", display, ddc.InputName(input))
		return nil
	},
}

func init() {
	switchCmd.Flags().StringVarP(&switchDisplay, "display", "d", "", "display id (defaults to the configured display)")
	rootCmd.AddCommand(switchCmd)
}
