package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inputswitch/internal/ddc"
)

var listInputs bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists connected displays",
	Long:  "Lists the displays reachable over DDC/CI, or with --inputs the input source names switch accepts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if listInputs {
			values := []int{
				ddc.InputVGA1, ddc.InputDVI1, ddc.InputDVI2,
				ddc.InputDisplayPort1, ddc.InputDisplayPort2,
				ddc.InputHDMI1, ddc.InputHDMI2, ddc.InputHDMI3, ddc.InputUSBC,
			}
			for _, v := range values {
				fmt.Fprintf(out, "0x%02X  %s\n", v, ddc.InputName(v))
			}
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
		defer cancel()

		backend, release, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		displays, err := backend.ListDisplays(ctx)
		if err != nil {
			return err
		}

		if len(displays) == 0 {
			fmt.Fprintln(out, "No DDC/CI capable displays found")
			return nil
		}

		for _, d := range displays {
			marker := " "
			if d.ID == cfg.Display {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-4s %s\n", marker, d.ID, d.Label)
		}

		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listInputs, "inputs", false, "list known input source names instead of displays")
	rootCmd.AddCommand(listCmd)
}
