package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inputswitch/internal/daemon"
	"inputswitch/internal/hotkey"
	"inputswitch/internal/logger"
	"inputswitch/internal/startup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the input switch daemon",
	Long: `Polls the configured display, binds the toggle hotkey and keeps the mixer in
sync until interrupted. SIGHUP or 'inputswitch config set' reloads the config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger.WithComponent("daemon")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, release, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		opts := daemon.Options{
			ConfigPath: configPath,
			Overrides:  flagOverrides(cmd),
			Backend:    backend,
		}

		if registrar, err := hotkey.NewRegistrar(hotkey.Options{Devices: cfg.Hotkey.Devices}, logger.WithComponent("hotkey")); err != nil {
			log.Warn().Err(err).Msg("global hotkeys unavailable")
		} else {
			defer registrar.Close()
			opts.Hotkeys = registrar
		}

		if setter, err := startup.New(); err != nil {
			log.Warn().Err(err).Msg("run-at-startup unavailable")
		} else {
			opts.Startup = setter
		}

		d := daemon.New(opts, log)

		go reloadOnHangup(ctx, d)

		return d.Run(ctx, cfg.IPC.SocketPath)
	},
}

func reloadOnHangup(ctx context.Context, d *daemon.Daemon) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := d.Reload(); err != nil {
				logger.Error().Err(err).Msg("reload failed, keeping previous configuration")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
