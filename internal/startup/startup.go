// Package startup launches the daemon at login.
package startup

import (
	"errors"
	"os"
	"strings"
)

const AppName = "inputswitch"

var ErrUnsupported = errors.New("run at startup is not supported on this platform")

// Setter switches launching at login on or off.
type Setter interface {
	SetRunOnStart(enabled bool) error
	IsEnabled() bool
}

// Command is what gets launched at login: the running binary with the "run"
// subcommand.
func Command() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return []string{exe, "run"}, nil
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
