//go:build !linux && !windows

package hotkey

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// NewRegistrar reports that no global hotkey facility exists on this platform.
func NewRegistrar(_ Options, _ zerolog.Logger) (Registrar, error) {
	return nil, fmt.Errorf("%w: global hotkeys are not supported on %s", ErrHotkeyRegistrationFailed, runtime.GOOS)
}
