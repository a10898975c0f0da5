// Package mixer mutes and unmutes audio mixer channels.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	KindCamillaDSP  = "camilladsp"
	KindVoicemeeter = "voicemeeter"

	defaultCamillaURL     = "ws://127.0.0.1:1234"
	defaultRequestTimeout = 500 * time.Millisecond
)

var ErrUnsupportedMixer = errors.New("unsupported mixer")

// Muter sets the mute flag of one channel.
type Muter interface {
	SetMute(ctx context.Context, channel int, mute bool) error
	Close() error
}

// Config selects and configures the mixer.
type Config struct {
	Kind       string           `yaml:"kind"`
	CamillaDSP CamillaDSPConfig `yaml:"camilladsp"`
}

type CamillaDSPConfig struct {
	URL       string `yaml:"ws_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// New builds the muter for cfg.Kind. Every call is sent, so a mixer that
// restarted with fresh state is corrected on the next request.
func New(cfg Config, logger zerolog.Logger) (Muter, error) {
	var (
		m   Muter
		err error
	)

	switch cfg.Kind {
	case KindCamillaDSP, "":
		timeout := defaultRequestTimeout
		if cfg.CamillaDSP.TimeoutMs > 0 {
			timeout = time.Duration(cfg.CamillaDSP.TimeoutMs) * time.Millisecond
		}
		url := cfg.CamillaDSP.URL
		if url == "" {
			url = defaultCamillaURL
		}
		m, err = NewCamillaDSP(url, timeout, logger)
	case KindVoicemeeter:
		m, err = NewVoicemeeter(logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMixer, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}
