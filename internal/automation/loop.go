package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"inputswitch/internal/ddc"
	"inputswitch/internal/hotkey"
)

// Unknown is the observed input before the first successful read.
const Unknown = -1

var (
	ErrLoopStopped   = errors.New("automation loop stopped")
	ErrNotConfigured = errors.New("display and inputs are not configured")
)

// Hotkeys is the global shortcut facility the loop binds its toggle to.
type Hotkeys interface {
	Register(combo string, fn func()) error
	Unregister(combo string)
}

// ToggleTarget picks the input to switch to: second, unless the display is
// already showing second, in which case main.
func ToggleTarget(observed, main, second int) int {
	if observed == second {
		return main
	}
	return second
}

// Loop polls the input source of one display and switches it on demand.
//
// The last observed input is written only by the poller and read by the
// toggle path and mixer sync. A toggle may act on a value that is up to one
// poll interval old; writes never update it, the next poll does.
type Loop struct {
	backend ddc.Backend
	cfg     Config
	mixer   *MixerSync
	logger  zerolog.Logger

	lastObserved atomic.Int64
	reading      atomic.Bool
	stopped      atomic.Bool
	polls        atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	started  bool
	hotkeys  Hotkeys
	combo    string
	stopOnce sync.Once
}

// NewLoop builds a stopped loop. mixer may be nil.
func NewLoop(backend ddc.Backend, cfg Config, mixer *MixerSync, logger zerolog.Logger) *Loop {
	ctx, cancel := context.WithCancel(context.Background())

	l := &Loop{
		backend: backend,
		cfg:     cfg.withDefaults(),
		mixer:   mixer,
		logger:  logger.With().Str("display", cfg.DisplayID).Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
	l.lastObserved.Store(Unknown)

	return l
}

// Start launches the poller. The first read happens immediately.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.stopped.Load() {
		return
	}
	l.started = true

	l.wg.Add(1)
	go l.run()
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	l.fire()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.fire()
		}
	}
}

// fire runs one tick off the ticker goroutine. A tick that finds the previous
// read still in flight is dropped rather than queued.
func (l *Loop) fire() {
	if !l.reading.CompareAndSwap(false, true) {
		l.logger.Debug().Msg("previous read still in flight, skipping tick")
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.reading.Store(false)

		l.Tick(l.ctx)
	}()
}

// Tick performs one poll: read the input source, then resync the mixer.
func (l *Loop) Tick(ctx context.Context) {
	if l.stopped.Load() {
		return
	}
	l.polls.Add(1)

	if l.cfg.DisplayID != "" {
		l.read(ctx)
	}

	if l.mixer != nil && !l.stopped.Load() {
		ctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
		l.mixer.Sync(ctx, l.Observed())
		cancel()
	}
}

func (l *Loop) read(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	value, err := l.backend.ReadFeature(ctx, l.cfg.DisplayID, ddc.InputSourceCode)
	if err != nil {
		// Sleeping, unplugged or mid-switch displays fail reads routinely.
		l.logger.Debug().Err(err).Msg("input source read failed")
		return
	}

	current, ok := value.First()
	if !ok {
		l.logger.Debug().Msg("empty input source reply")
		return
	}

	if prev := l.lastObserved.Swap(int64(current)); prev != int64(current) {
		l.logger.Info().
			Str("from", inputName(int(prev))).
			Str("to", inputName(current)).
			Msg("input source changed")
	}
}

// Observed returns the last successfully read input, or Unknown.
func (l *Loop) Observed() int {
	return int(l.lastObserved.Load())
}

// Polls counts the ticks that ran.
func (l *Loop) Polls() uint64 {
	return l.polls.Load()
}

// Config returns the snapshot the loop was built from, with defaults applied.
func (l *Loop) Config() Config {
	return l.cfg
}

// Toggle switches the display to the input picked by ToggleTarget and returns
// it. Write failures are logged and returned, never retried.
func (l *Loop) Toggle(ctx context.Context) (int, error) {
	if l.stopped.Load() {
		return 0, ErrLoopStopped
	}
	if !l.cfg.CanSwitch() {
		return 0, ErrNotConfigured
	}

	observed := l.Observed()
	target := ToggleTarget(observed, l.cfg.MainInput, l.cfg.SecondInput)

	l.logger.Info().
		Str("observed", inputName(observed)).
		Str("target", inputName(target)).
		Msg("switching input")

	ctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	if err := l.backend.WriteFeature(ctx, l.cfg.DisplayID, ddc.InputSourceCode, target); err != nil {
		l.logger.Warn().Err(err).Str("target", inputName(target)).Msg("input switch failed")
		return target, err
	}

	return target, nil
}

func (l *Loop) onHotkey() {
	_, _ = l.Toggle(l.ctx)
}

// BindHotkey registers the configured keybind with hotkeys. A loop holds at
// most one registration, released by Stop.
func (l *Loop) BindHotkey(hotkeys Hotkeys) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped.Load() {
		return ErrLoopStopped
	}
	if l.combo != "" {
		return fmt.Errorf("%w: loop already bound to %q", hotkey.ErrHotkeyRegistrationFailed, l.combo)
	}

	if err := hotkeys.Register(l.cfg.Keybind, l.onHotkey); err != nil {
		if errors.Is(err, hotkey.ErrHotkeyRegistrationFailed) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", hotkey.ErrHotkeyRegistrationFailed, l.cfg.Keybind, err)
	}

	l.hotkeys = hotkeys
	l.combo = l.cfg.Keybind

	return nil
}

// HotkeyBound reports whether the loop currently holds a registration.
func (l *Loop) HotkeyBound() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.combo != ""
}

// Stop cancels the poller, releases the hotkey and waits for an in-flight
// tick to return. Safe to call more than once and on a loop never started.
// Toggles arriving after Stop are ignored.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		l.cancel()

		l.mu.Lock()
		if l.combo != "" {
			l.hotkeys.Unregister(l.combo)
			l.combo = ""
			l.hotkeys = nil
		}
		l.mu.Unlock()

		l.wg.Wait()
	})
}
