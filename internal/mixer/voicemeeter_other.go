//go:build !windows

package mixer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// Voicemeeter is only available on Windows.
type Voicemeeter struct{}

func NewVoicemeeter(_ zerolog.Logger) (*Voicemeeter, error) {
	return nil, fmt.Errorf("%w: voicemeeter is not available on %s", ErrUnsupportedMixer, runtime.GOOS)
}

func (*Voicemeeter) SetMute(context.Context, int, bool) error {
	return fmt.Errorf("%w: voicemeeter", ErrUnsupportedMixer)
}

func (*Voicemeeter) Close() error { return nil }
