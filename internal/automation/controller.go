package automation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"inputswitch/internal/ddc"
)

// StartupSetter toggles launching the daemon at login.
type StartupSetter interface {
	SetRunOnStart(enabled bool) error
}

// Deps are the optional collaborators of a Controller. Nil members disable
// the matching feature.
type Deps struct {
	Hotkeys Hotkeys
	Muter   Muter
	Startup StartupSetter
}

// Status is a point-in-time view of the running loop.
type Status struct {
	DisplayID     string `json:"display_id"`
	MainInput     int    `json:"main_input"`
	SecondInput   int    `json:"second_input"`
	ObservedInput int    `json:"observed_input"`
	Keybind       string `json:"keybind,omitempty"`
	HotkeyActive  bool   `json:"hotkey_active"`
	MixerSync     bool   `json:"mixer_sync"`
	Polls         uint64 `json:"polls"`
}

// Controller owns the single live Loop and replaces it on every settings change.
type Controller struct {
	backend ddc.Backend
	deps    Deps
	logger  zerolog.Logger

	mu   sync.Mutex
	loop *Loop
}

func NewController(backend ddc.Backend, deps Deps, logger zerolog.Logger) *Controller {
	return &Controller{
		backend: backend,
		deps:    deps,
		logger:  logger,
	}
}

// ApplyConfig tears down the running loop and starts one for cfg. Calls are
// serialized; a call returns only once the previous loop is fully stopped.
func (c *Controller) ApplyConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loop != nil {
		c.loop.Stop()
		c.loop = nil
	}

	var mixer *MixerSync
	switch {
	case !cfg.MixerEnabled:
	case !cfg.Complete():
		c.logger.Info().Msg("configuration incomplete, mixer sync disabled")
	case c.deps.Muter == nil:
		c.logger.Warn().Msg("mixer sync enabled but no mixer is available")
	default:
		mixer = NewMixerSync(c.deps.Muter, cfg.MixerChannel, cfg.MainInput, c.logger.With().Str("component", "mixer").Logger())
	}

	loop := NewLoop(c.backend, cfg, mixer, c.logger)
	loop.Start()

	switch {
	case !cfg.Complete():
		c.logger.Info().Msg("configuration incomplete, polling without hotkey")
	case c.deps.Hotkeys == nil:
		c.logger.Warn().Msg("no hotkey facility available, polling without hotkey")
	default:
		if err := loop.BindHotkey(c.deps.Hotkeys); err != nil {
			c.logger.Warn().Err(err).Str("keybind", cfg.Keybind).Msg("hotkey registration failed, polling without hotkey")
		} else {
			c.logger.Info().Str("keybind", cfg.Keybind).Msg("hotkey registered")
		}
	}

	if c.deps.Startup != nil {
		if err := c.deps.Startup.SetRunOnStart(cfg.RunOnStart); err != nil {
			c.logger.Warn().Err(err).Bool("run_on_start", cfg.RunOnStart).Msg("failed to update run-at-startup")
		}
	}

	c.loop = loop
}

// Close stops the running loop, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loop != nil {
		c.loop.Stop()
		c.loop = nil
	}
}

// ListDisplays enumerates the displays the backend can reach.
func (c *Controller) ListDisplays(ctx context.Context) ([]ddc.DisplayDescriptor, error) {
	return c.backend.ListDisplays(ctx)
}

// Toggle runs the hotkey action on demand.
func (c *Controller) Toggle(ctx context.Context) (int, error) {
	loop := c.current()
	if loop == nil {
		return 0, ErrNotConfigured
	}
	return loop.Toggle(ctx)
}

// Status describes the running loop. With nothing running only ObservedInput
// is set, to Unknown.
func (c *Controller) Status() Status {
	loop := c.current()
	if loop == nil {
		return Status{ObservedInput: Unknown}
	}

	cfg := loop.Config()

	return Status{
		DisplayID:     cfg.DisplayID,
		MainInput:     cfg.MainInput,
		SecondInput:   cfg.SecondInput,
		ObservedInput: loop.Observed(),
		Keybind:       cfg.Keybind,
		HotkeyActive:  loop.HotkeyBound(),
		MixerSync:     loop.mixer != nil,
		Polls:         loop.Polls(),
	}
}

func (c *Controller) current() *Loop {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loop
}
