package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"inputswitch/internal/automation"
	"inputswitch/internal/ddc"
	"inputswitch/internal/ipc"
)

var (
	statusDisplay string
	statusDaemon  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the current input source",
	Long: `Reads the input source (VCP 0x60) of the configured display, or of every
display when none is configured. With --daemon the running daemon is asked instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
		defer cancel()

		if statusDaemon {
			var st automation.Status
			if err := ipc.Send(ctx, cfg.IPC.SocketPath, ipc.TypeStatus, &st); err != nil {
				return err
			}
			if verbose {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprintf(out, "Display %s: %s (hotkey %t, mixer sync %t)\n",
				st.DisplayID, observedName(st.ObservedInput), st.HotkeyActive, st.MixerSync)
			return nil
		}

		backend, release, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		var displays []ddc.DisplayDescriptor
		if id := displayOrDefault(statusDisplay, cfg); id != "" {
			displays = []ddc.DisplayDescriptor{{ID: id}}
		} else if displays, err = backend.ListDisplays(ctx); err != nil {
			return err
		}

		for _, d := range displays {
			value, err := backend.ReadFeature(ctx, d.ID, ddc.InputSourceCode)
			if err != nil {
				fmt.Fprintf(out, "Display %s: %v\n", d.ID, err)
				continue
			}
			current, ok := value.First()
			if !ok {
				fmt.Fprintf(out, "Display %s: no reply\n", d.ID)
				continue
			}

			fmt.Fprintf(out, "Display %s: %s (0x%02X)", d.ID, ddc.InputName(current), current)
			if d.Label != "" {
				fmt.Fprintf(out, "  %s", d.Label)
			}
			fmt.Fprintln(out)
		}

		return nil
	},
}

func observedName(v int) string {
	if v == automation.Unknown {
		return "unknown"
	}
	return ddc.InputName(v)
}

func init() {
	statusCmd.Flags().StringVarP(&statusDisplay, "display", "d", "", "display id (defaults to the configured display)")
	statusCmd.Flags().BoolVar(&statusDaemon, "daemon", false, "query the running daemon")
	rootCmd.AddCommand(statusCmd)
}
