// Package daemon ties the config file, the automation controller and the
// control socket together for the long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"inputswitch/internal/automation"
	"inputswitch/internal/config"
	"inputswitch/internal/ddc"
	"inputswitch/internal/ipc"
	"inputswitch/internal/mixer"
)

// MuterFactory builds the mixer client for a mixer section.
type MuterFactory func(cfg mixer.Config, logger zerolog.Logger) (mixer.Muter, error)

type Options struct {
	ConfigPath string
	Overrides  config.FlagOverrides

	Backend ddc.Backend
	Hotkeys automation.Hotkeys
	Startup automation.StartupSetter

	// NewMuter defaults to mixer.New.
	NewMuter MuterFactory
}

// ToggleResult is the reply to a toggle request.
type ToggleResult struct {
	Target int    `json:"target"`
	Name   string `json:"name"`
}

type Daemon struct {
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	cfg      config.Config
	ctrl     *automation.Controller
	muter    mixer.Muter
	mixerCfg mixer.Config
	mixerOn  bool
}

func New(opts Options, logger zerolog.Logger) *Daemon {
	if opts.NewMuter == nil {
		opts.NewMuter = mixer.New
	}

	return &Daemon{
		opts:   opts,
		logger: logger,
	}
}

// Reload re-reads the config file and applies it. An invalid file leaves the
// running configuration in place.
func (d *Daemon) Reload() error {
	cfg, err := config.Load(d.opts.ConfigPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	d.opts.Overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", d.opts.ConfigPath, err)
	}

	d.Apply(cfg)
	d.logger.Info().Str("path", d.opts.ConfigPath).Msg("configuration applied")

	return nil
}

// Apply hands cfg to the controller. The mixer client is rebuilt only when
// its section changed.
func (d *Daemon) Apply(cfg config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil || d.mixerOn != cfg.Mixer.Enabled || d.mixerCfg != cfg.Mixer.Config {
		if d.ctrl != nil {
			d.ctrl.Close()
		}
		d.closeMuter()

		if cfg.Mixer.Enabled {
			m, err := d.opts.NewMuter(cfg.Mixer.Config, d.logger.With().Str("component", "mixer").Logger())
			if err != nil {
				d.logger.Warn().Err(err).Str("kind", cfg.Mixer.Kind).Msg("mixer unavailable, mixer sync disabled")
			} else {
				d.muter = m
			}
		}
		d.mixerCfg, d.mixerOn = cfg.Mixer.Config, cfg.Mixer.Enabled

		d.ctrl = automation.NewController(d.opts.Backend, automation.Deps{
			Hotkeys: d.opts.Hotkeys,
			Muter:   d.muter,
			Startup: d.opts.Startup,
		}, d.logger)
	}

	d.ctrl.ApplyConfig(cfg.Snapshot())
	d.cfg = cfg
}

func (d *Daemon) closeMuter() {
	if d.muter == nil {
		return
	}
	if err := d.muter.Close(); err != nil {
		d.logger.Debug().Err(err).Msg("closing mixer")
	}
	d.muter = nil
}

func (d *Daemon) controller() *automation.Controller {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ctrl
}

// Status reports the running loop.
func (d *Daemon) Status() automation.Status {
	ctrl := d.controller()
	if ctrl == nil {
		return automation.Status{ObservedInput: automation.Unknown}
	}
	return ctrl.Status()
}

// Toggle flips the configured display between its two inputs.
func (d *Daemon) Toggle(ctx context.Context) (ToggleResult, error) {
	ctrl := d.controller()
	if ctrl == nil {
		return ToggleResult{}, automation.ErrNotConfigured
	}

	target, err := ctrl.Toggle(ctx)
	if err != nil {
		return ToggleResult{}, err
	}

	return ToggleResult{Target: target, Name: ddc.InputName(target)}, nil
}

// Handle answers control socket requests.
func (d *Daemon) Handle(ctx context.Context, req ipc.Request) (any, error) {
	switch req.Type {
	case ipc.TypeToggle:
		return d.Toggle(ctx)
	case ipc.TypeReload:
		return nil, d.Reload()
	case ipc.TypeStatus:
		return d.Status(), nil
	}
	return nil, fmt.Errorf("%w: %q", ipc.ErrUnknownRequest, req.Type)
}

// Run applies the config file and serves the control socket until ctx is
// canceled. A socket failure is logged and the automation keeps running,
// unless another daemon already owns the socket.
func (d *Daemon) Run(ctx context.Context, socketPath string) error {
	if err := d.Reload(); err != nil {
		return err
	}
	defer d.Close()

	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, socketPath, d.Handle, d.logger.With().Str("component", "ipc").Logger())
	}()

	select {
	case <-ctx.Done():
		<-done
	case err := <-done:
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return err
		}
		if err != nil {
			d.logger.Error().Err(err).Msg("control socket unavailable")
		}
		<-ctx.Done()
	}

	d.logger.Info().Msg("shutting down")

	return nil
}

// Close stops the controller and the mixer client.
func (d *Daemon) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl != nil {
		d.ctrl.Close()
		d.ctrl = nil
	}
	d.closeMuter()
}
