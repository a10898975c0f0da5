package automation

import (
	"time"

	"inputswitch/internal/ddc"
)

const (
	DefaultPollInterval = time.Second
	DefaultCallTimeout  = 3 * time.Second
)

// Config is one settings snapshot. Empty strings and zero inputs mean the
// field is absent; 0 is not a valid input source value.
type Config struct {
	DisplayID   string
	MainInput   int
	SecondInput int
	Keybind     string
	RunOnStart  bool

	MixerEnabled bool
	MixerChannel int

	PollInterval time.Duration // Defaults to DefaultPollInterval
	CallTimeout  time.Duration // Bounds each backend call, defaults to DefaultCallTimeout
}

// Complete reports whether the hotkey can be armed: display, both inputs and
// the key combination are present.
func (c Config) Complete() bool {
	return c.DisplayID != "" && c.MainInput != 0 && c.SecondInput != 0 && c.Keybind != ""
}

// CanSwitch reports whether a toggle has somewhere to go, regardless of the keybind.
func (c Config) CanSwitch() bool {
	return c.DisplayID != "" && c.MainInput != 0 && c.SecondInput != 0
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// inputName renders an input for log lines, "unknown" for Unknown.
func inputName(v int) string {
	if v == Unknown {
		return "unknown"
	}
	return ddc.InputName(v)
}
