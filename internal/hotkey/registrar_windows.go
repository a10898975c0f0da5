//go:build windows

package hotkey

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	xhotkey "golang.design/x/hotkey"
)

var winModifiers = []struct {
	mod Modifier
	win xhotkey.Modifier
}{
	{ModCtrl, xhotkey.ModCtrl},
	{ModAlt, xhotkey.ModAlt},
	{ModShift, xhotkey.ModShift},
	{ModSuper, xhotkey.ModWin},
}

// Virtual-key codes for the named keys; letters and digits are their ASCII value.
var winKeys = map[string]xhotkey.Key{
	"Space":     0x20,
	"Enter":     0x0D,
	"Escape":    0x1B,
	"Tab":       0x09,
	"Backspace": 0x08,
	"PageUp":    0x21,
	"PageDown":  0x22,
	"End":       0x23,
	"Home":      0x24,
	"Left":      0x25,
	"Up":        0x26,
	"Right":     0x27,
	"Down":      0x28,
	"Insert":    0x2D,
	"Delete":    0x2E,
}

func virtualKey(key string) (xhotkey.Key, bool) {
	if vk, ok := winKeys[key]; ok {
		return vk, true
	}
	if len(key) == 1 {
		return xhotkey.Key(key[0]), true
	}

	var n int
	if _, err := fmt.Sscanf(key, "F%d", &n); err == nil && n >= 1 && n <= 24 {
		return xhotkey.Key(0x70 + n - 1), true
	}

	return 0, false
}

type winBinding struct {
	hk   *xhotkey.Hotkey
	done chan struct{}
}

// winRegistrar claims combinations through RegisterHotKey, so a combination
// owned by another application fails to register.
type winRegistrar struct {
	logger zerolog.Logger

	mu       sync.Mutex
	bindings *bindings[*winBinding]
}

func NewRegistrar(_ Options, logger zerolog.Logger) (Registrar, error) {
	return &winRegistrar{
		logger:   logger,
		bindings: newBindings[*winBinding](),
	}, nil
}

func (r *winRegistrar) Register(combo string, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.bindings.claim(combo)
	if err != nil {
		return err
	}

	vk, ok := virtualKey(c.Key)
	if !ok {
		return fmt.Errorf("%w: no virtual key for %s", ErrHotkeyRegistrationFailed, c.Key)
	}

	var mods []xhotkey.Modifier
	for _, m := range winModifiers {
		if c.Mods&m.mod != 0 {
			mods = append(mods, m.win)
		}
	}

	hk := xhotkey.New(mods, vk)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHotkeyRegistrationFailed, c, err)
	}

	b := &winBinding{hk: hk, done: make(chan struct{})}
	go forward(hk.Keydown(), b.done, fn)

	r.bindings.entries[c] = b
	r.logger.Debug().Str("combo", c.String()).Msg("hotkey bound")

	return nil
}

func (r *winRegistrar) Unregister(combo string) {
	c, err := ParseCombo(combo)
	if err != nil {
		return
	}

	r.mu.Lock()
	b, ok := r.bindings.entries[c]
	delete(r.bindings.entries, c)
	r.mu.Unlock()

	if ok {
		release(b)
	}
}

func (r *winRegistrar) Close() error {
	r.mu.Lock()
	entries := r.bindings.entries
	r.bindings = newBindings[*winBinding]()
	r.mu.Unlock()

	for _, b := range entries {
		release(b)
	}

	return nil
}

func release(b *winBinding) {
	close(b.done)
	_ = b.hk.Unregister()
}
