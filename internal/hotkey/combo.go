// Package hotkey registers global key combinations.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHotkeyRegistrationFailed means the combination could not be claimed,
	// e.g. it is already registered here or by another process.
	ErrHotkeyRegistrationFailed = errors.New("hotkey registration failed")
	ErrInvalidCombo             = errors.New("invalid key combination")
)

// Registrar is a global shortcut facility.
type Registrar interface {
	Register(combo string, fn func()) error
	Unregister(combo string)
	Close() error
}

// Options configure the platform registrar.
type Options struct {
	// Devices lists evdev keyboards to watch on Linux. Empty means every
	// /dev/input/by-path/*-event-kbd device.
	Devices []string
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

// Combo is a parsed accelerator such as "Ctrl+Alt+S".
type Combo struct {
	Mods Modifier
	Key  string // Canonical key name, see keyNames
}

var modifierNames = map[string]Modifier{
	"ctrl":             ModCtrl,
	"control":          ModCtrl,
	"cmdorctrl":        ModCtrl,
	"commandorcontrol": ModCtrl,
	"alt":              ModAlt,
	"option":           ModAlt,
	"shift":            ModShift,
	"super":            ModSuper,
	"meta":             ModSuper,
	"win":              ModSuper,
	"cmd":              ModSuper,
	"command":          ModSuper,
}

// keyNames maps lowercase spellings to canonical key names. Letters, digits
// and function keys are handled in canonicalKey.
var keyNames = map[string]string{
	"space":     "Space",
	"enter":     "Enter",
	"return":    "Enter",
	"esc":       "Escape",
	"escape":    "Escape",
	"tab":       "Tab",
	"backspace": "Backspace",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
	"insert":    "Insert",
	"delete":    "Delete",
	"del":       "Delete",
}

// ParseCombo parses an Electron style accelerator. Modifiers may come in any
// order; exactly one non-modifier key is required.
func ParseCombo(s string) (Combo, error) {
	var c Combo

	if strings.TrimSpace(s) == "" {
		return c, fmt.Errorf("%w: empty", ErrInvalidCombo)
	}

	for _, part := range strings.Split(s, "+") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			return Combo{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidCombo, s)
		}

		if mod, ok := modifierNames[token]; ok {
			c.Mods |= mod
			continue
		}

		key, ok := canonicalKey(token)
		if !ok {
			return Combo{}, fmt.Errorf("%w: unknown key %q", ErrInvalidCombo, part)
		}
		if c.Key != "" {
			return Combo{}, fmt.Errorf("%w: %q has more than one key", ErrInvalidCombo, s)
		}
		c.Key = key
	}

	if c.Key == "" {
		return Combo{}, fmt.Errorf("%w: %q has no key", ErrInvalidCombo, s)
	}

	return c, nil
}

func canonicalKey(token string) (string, bool) {
	if name, ok := keyNames[token]; ok {
		return name, true
	}

	if len(token) == 1 {
		ch := token[0]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			return strings.ToUpper(token), true
		}
		return "", false
	}

	if token[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(token, "f%d", &n); err == nil && n >= 1 && n <= 24 && token == fmt.Sprintf("f%d", n) {
			return fmt.Sprintf("F%d", n), true
		}
	}

	return "", false
}

// String renders the canonical form, modifiers first in a fixed order.
func (c Combo) String() string {
	var b strings.Builder

	for _, m := range []struct {
		mod  Modifier
		name string
	}{
		{ModCtrl, "Ctrl"},
		{ModAlt, "Alt"},
		{ModShift, "Shift"},
		{ModSuper, "Super"},
	} {
		if c.Mods&m.mod != 0 {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	b.WriteString(c.Key)

	return b.String()
}

// bindings is the registration table shared by the platform registrars.
type bindings[T any] struct {
	entries map[Combo]T
}

func newBindings[T any]() *bindings[T] {
	return &bindings[T]{entries: make(map[Combo]T)}
}

func (b *bindings[T]) claim(s string) (Combo, error) {
	c, err := ParseCombo(s)
	if err != nil {
		return Combo{}, fmt.Errorf("%w: %w", ErrHotkeyRegistrationFailed, err)
	}
	if _, taken := b.entries[c]; taken {
		return Combo{}, fmt.Errorf("%w: %s is already registered", ErrHotkeyRegistrationFailed, c)
	}
	return c, nil
}

// forward runs fn for every event until done closes or events is closed.
// A closed events channel must not be read as an endless stream of presses.
func forward[E any](events <-chan E, done <-chan struct{}, fn func()) {
	for {
		select {
		case <-done:
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			go fn()
		}
	}
}
