//go:build windows

package mixer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const voicemeeterUninstallKey = `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\VB:Voicemeeter {17359A74-1236-5467}`

// Voicemeeter mutes input strips through the Voicemeeter Remote API.
type Voicemeeter struct {
	logger zerolog.Logger

	mu            sync.Mutex
	procLogout    *windows.LazyProc
	procSetParams *windows.LazyProc
}

// NewVoicemeeter loads the remote API library and logs in.
func NewVoicemeeter(logger zerolog.Logger) (*Voicemeeter, error) {
	path, err := voicemeeterDLLPath()
	if err != nil {
		return nil, err
	}

	dll := windows.NewLazyDLL(path)
	if err := dll.Load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	procLogin := dll.NewProc("VBVMR_Login")
	v := &Voicemeeter{
		logger:        logger,
		procLogout:    dll.NewProc("VBVMR_Logout"),
		procSetParams: dll.NewProc("VBVMR_SetParameters"),
	}

	for _, p := range []*windows.LazyProc{procLogin, v.procLogout, v.procSetParams} {
		if err := p.Find(); err != nil {
			return nil, fmt.Errorf("find %s: %w", p.Name, err)
		}
	}

	// 0: ok, 1: ok but the Voicemeeter application is not running
	r, _, _ := procLogin.Call()
	switch int32(r) {
	case 0:
	case 1:
		logger.Warn().Msg("Voicemeeter is installed but not running")
	default:
		return nil, fmt.Errorf("VBVMR_Login failed: %d", int32(r))
	}

	logger.Info().Str("dll", path).Msg("logged in to Voicemeeter")

	return v, nil
}

func voicemeeterDLLPath() (string, error) {
	name := "VoicemeeterRemote.dll"
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		name = "VoicemeeterRemote64.dll"
	}

	var dirs []string

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, voicemeeterUninstallKey, registry.QUERY_VALUE)
	if err == nil {
		if uninstall, _, err := key.GetStringValue("UninstallString"); err == nil {
			dirs = append(dirs, filepath.Dir(strings.Trim(uninstall, `"`)))
		}
		key.Close()
	}
	if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
		dirs = append(dirs, filepath.Join(pf, "VB", "Voicemeeter"))
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", errors.New("voicemeeter is not installed")
}

// SetMute sets Strip[channel].Mute.
func (v *Voicemeeter) SetMute(_ context.Context, channel int, mute bool) error {
	flag := 0
	if mute {
		flag = 1
	}

	script, err := windows.BytePtrFromString(fmt.Sprintf("Strip[%d].Mute=%d;", channel, flag))
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// 0: ok, >0: script error on that line, <0: not connected or unexpected
	r, _, _ := v.procSetParams.Call(uintptr(unsafe.Pointer(script)))
	if code := int32(r); code != 0 {
		return fmt.Errorf("VBVMR_SetParameters strip %d: code %d", channel, code)
	}

	v.logger.Debug().Int("strip", channel).Bool("mute", mute).Msg("strip mute set")

	return nil
}

// Close logs out of the remote API.
func (v *Voicemeeter) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, _, _ = v.procLogout.Call()

	return nil
}
