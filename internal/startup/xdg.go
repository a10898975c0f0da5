//go:build !windows

package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// XDGAutostart writes a desktop entry into $XDG_CONFIG_HOME/autostart.
type XDGAutostart struct {
	dir     string
	command []string
}

// New returns the autostart setter for the current user.
func New() (Setter, error) {
	if runtime.GOOS == "darwin" {
		return nil, ErrUnsupported
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config dir: %w", err)
	}

	command, err := Command()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	return NewXDGAutostart(filepath.Join(dir, "autostart"), command), nil
}

func NewXDGAutostart(dir string, command []string) *XDGAutostart {
	return &XDGAutostart{dir: dir, command: command}
}

func (x *XDGAutostart) path() string {
	return filepath.Join(x.dir, AppName+".desktop")
}

func (x *XDGAutostart) entry() string {
	var b strings.Builder

	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=" + AppName + "\n")
	b.WriteString("Comment=Toggle monitor inputs over DDC/CI\n")
	b.WriteString("Exec=" + quoteArgs(x.command) + "\n")
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")

	return b.String()
}

func (x *XDGAutostart) SetRunOnStart(enabled bool) error {
	if !enabled {
		if err := os.Remove(x.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove autostart entry: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}

	tmp := x.path() + ".tmp"
	if err := os.WriteFile(tmp, []byte(x.entry()), 0o644); err != nil {
		return fmt.Errorf("write autostart entry: %w", err)
	}
	if err := os.Rename(tmp, x.path()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write autostart entry: %w", err)
	}

	return nil
}

func (x *XDGAutostart) IsEnabled() bool {
	_, err := os.Stat(x.path())
	return err == nil
}
