package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"inputswitch/internal/ddc"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detects the host and DDC/CI support",
	Long:  "Prints the operating system and checks that the DDC/CI transport for this platform is available.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		detector := ddc.NewDetector()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, detector.GetOSInfo())

		if verbose {
			if info, err := detector.DetectSystemInfo(); err == nil {
				fmt.Fprintf(out, "  Kernel:       %s\n", info.Kernel)
				fmt.Fprintf(out, "  Architecture: %s\n", info.Architecture)
				if info.Build != "" {
					fmt.Fprintf(out, "  Build:        %s\n", info.Build)
				}
			}
		}

		ok, msg := detector.CheckDDCSupport(cfg.Backend.DDCUtilPath)
		status := "[x]"
		if !ok {
			status = "[ ]"
		}
		fmt.Fprintf(out, "DDC/CI: %s %s\n", status, msg)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
