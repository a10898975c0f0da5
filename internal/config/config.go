// Package config loads and saves the YAML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"inputswitch/internal/automation"
	"inputswitch/internal/ddc"
	"inputswitch/internal/hotkey"
	"inputswitch/internal/logger"
	"inputswitch/internal/mixer"
)

const appDir = "inputswitch"

// Config is the settings document. Every automation field is optional; a
// partial file still runs the poller.
type Config struct {
	Display     string `yaml:"display,omitempty"`
	MainInput   Input  `yaml:"main_input,omitempty"`
	SecondInput Input  `yaml:"second_input,omitempty"`
	Keybind     string `yaml:"keybind,omitempty"`
	RunOnStart  bool   `yaml:"run_on_start"`

	PollIntervalMS int `yaml:"poll_interval_ms"`

	Mixer   MixerConfig   `yaml:"mixer"`
	Hotkey  HotkeyConfig  `yaml:"hotkey"`
	Backend BackendConfig `yaml:"backend"`
	IPC     IPCConfig     `yaml:"ipc"`
	Logging logger.Config `yaml:"logging"`
}

type MixerConfig struct {
	Enabled      bool `yaml:"enabled"`
	Channel      int  `yaml:"channel"`
	mixer.Config `yaml:",inline"`
}

type HotkeyConfig struct {
	Devices []string `yaml:"devices,omitempty"` // evdev keyboards, Linux only
}

type BackendConfig struct {
	DDCUtilPath       string `yaml:"ddcutil_path,omitempty"`
	CommandTimeoutMS  int    `yaml:"command_timeout_ms"`
	RefreshIntervalMS int    `yaml:"refresh_interval_ms"`
	CallTimeoutMS     int    `yaml:"call_timeout_ms"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		PollIntervalMS: int(automation.DefaultPollInterval / time.Millisecond),
		Mixer: MixerConfig{
			Config: mixer.Config{
				Kind: mixer.KindCamillaDSP,
				CamillaDSP: mixer.CamillaDSPConfig{
					URL:       "ws://127.0.0.1:1234",
					TimeoutMs: 500,
				},
			},
		},
		Backend: BackendConfig{
			DDCUtilPath:       "ddcutil",
			CommandTimeoutMS:  5000,
			RefreshIntervalMS: 10000,
			CallTimeoutMS:     int(automation.DefaultCallTimeout / time.Millisecond),
		},
		IPC: IPCConfig{
			SocketPath: DefaultSocketPath(),
		},
		Logging: logger.Config{
			Level:  "info",
			Output: "console",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/inputswitch/config.yaml or the platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(dir, appDir, "config.yaml")
}

// DefaultSocketPath prefers $XDG_RUNTIME_DIR, falling back to the temp dir.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appDir+".sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d.sock", appDir, os.Getuid()))
}

// Load reads path over the defaults. Unknown fields and trailing documents
// are rejected. A missing file returns the defaults with an error matching
// os.ErrNotExist.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}

	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), fmt.Errorf("read config file: %w", err)
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	return Parse(b)
}

// Parse decodes a YAML document over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg Config) error {
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config yaml: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// FlagOverrides are applied on top of the file. Nil pointers are ignored; a
// non-nil pointer is applied even when it holds a zero value.
type FlagOverrides struct {
	Display     *string
	Keybind     *string
	DDCUtilPath *string
	SocketPath  *string
	LogLevel    *string
	Verbose     *bool
}

func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.Display != nil {
		cfg.Display = *o.Display
	}
	if o.Keybind != nil {
		cfg.Keybind = *o.Keybind
	}
	if o.DDCUtilPath != nil {
		cfg.Backend.DDCUtilPath = *o.DDCUtilPath
	}
	if o.SocketPath != nil {
		cfg.IPC.SocketPath = *o.SocketPath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.Verbose != nil && *o.Verbose {
		cfg.Logging.Debug = true
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Missing automation fields are not errors.
func (c *Config) Validate() error {
	if c.MainInput != 0 && c.MainInput == c.SecondInput {
		return fmt.Errorf("main_input and second_input must differ (both %s)", c.MainInput)
	}
	if c.Keybind != "" {
		if _, err := hotkey.ParseCombo(c.Keybind); err != nil {
			return fmt.Errorf("keybind: %w", err)
		}
	}
	if c.PollIntervalMS < 100 {
		return errors.New("poll_interval_ms must be >= 100")
	}

	if c.Mixer.Channel < 0 {
		return errors.New("mixer.channel must be >= 0")
	}
	switch c.Mixer.Kind {
	case mixer.KindCamillaDSP:
		if c.Mixer.CamillaDSP.URL == "" {
			return errors.New("mixer.camilladsp.ws_url must not be empty")
		}
		if c.Mixer.CamillaDSP.TimeoutMs <= 0 {
			return errors.New("mixer.camilladsp.timeout_ms must be > 0")
		}
	case mixer.KindVoicemeeter:
	default:
		return fmt.Errorf("mixer.kind must be %q or %q", mixer.KindCamillaDSP, mixer.KindVoicemeeter)
	}

	for i, dev := range c.Hotkey.Devices {
		if dev == "" {
			return fmt.Errorf("hotkey.devices[%d] is empty", i)
		}
	}

	if c.Backend.CommandTimeoutMS <= 0 {
		return errors.New("backend.command_timeout_ms must be > 0")
	}
	if c.Backend.RefreshIntervalMS <= 0 {
		return errors.New("backend.refresh_interval_ms must be > 0")
	}
	if c.Backend.CallTimeoutMS <= 0 {
		return errors.New("backend.call_timeout_ms must be > 0")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// Snapshot converts the file into the automation settings.
func (c *Config) Snapshot() automation.Config {
	return automation.Config{
		DisplayID:    c.Display,
		MainInput:    int(c.MainInput),
		SecondInput:  int(c.SecondInput),
		Keybind:      c.Keybind,
		RunOnStart:   c.RunOnStart,
		MixerEnabled: c.Mixer.Enabled,
		MixerChannel: c.Mixer.Channel,
		PollInterval: time.Duration(c.PollIntervalMS) * time.Millisecond,
		CallTimeout:  time.Duration(c.Backend.CallTimeoutMS) * time.Millisecond,
	}
}

// BackendOptions converts the backend section for the resolver.
func (c *Config) BackendOptions() ddc.BackendOptions {
	return ddc.BackendOptions{
		DDCUtilPath:     c.Backend.DDCUtilPath,
		CommandTimeout:  time.Duration(c.Backend.CommandTimeoutMS) * time.Millisecond,
		RefreshInterval: time.Duration(c.Backend.RefreshIntervalMS) * time.Millisecond,
	}
}

// Keys lists the settings Set understands.
var Keys = []string{
	"display", "main_input", "second_input", "keybind", "run_on_start",
	"poll_interval_ms", "mixer.enabled", "mixer.channel", "mixer.kind",
}

// Set assigns one setting from its string form. An empty value clears
// optional settings.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case "display":
		c.Display = value
	case "main_input", "second_input":
		var in Input
		if value != "" {
			v, err := ddc.ParseInput(value)
			if err != nil {
				return err
			}
			in = Input(v)
		}
		if key == "main_input" {
			c.MainInput = in
		} else {
			c.SecondInput = in
		}
	case "keybind":
		if value != "" {
			combo, err := hotkey.ParseCombo(value)
			if err != nil {
				return err
			}
			value = combo.String()
		}
		c.Keybind = value
	case "run_on_start", "mixer.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "run_on_start" {
			c.RunOnStart = b
		} else {
			c.Mixer.Enabled = b
		}
	case "poll_interval_ms", "mixer.channel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "poll_interval_ms" {
			c.PollIntervalMS = n
		} else {
			c.Mixer.Channel = n
		}
	case "mixer.kind":
		c.Mixer.Kind = value
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
