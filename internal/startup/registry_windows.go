//go:build windows

package startup

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

// RunKey sets a value under HKCU\...\Run.
type RunKey struct {
	command []string
}

func New() (Setter, error) {
	command, err := Command()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return &RunKey{command: command}, nil
}

func (r *RunKey) SetRunOnStart(enabled bool) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE|registry.QUERY_VALUE)
	if err != nil {
		return fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	if !enabled {
		if err := key.DeleteValue(AppName); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("delete run value: %w", err)
		}
		return nil
	}

	if err := key.SetStringValue(AppName, quoteArgs(r.command)); err != nil {
		return fmt.Errorf("set run value: %w", err)
	}

	return nil
}

func (r *RunKey) IsEnabled() bool {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer key.Close()

	_, _, err = key.GetStringValue(AppName)
	return err == nil
}
