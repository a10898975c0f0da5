//go:build !windows
// +build !windows

package ddc

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// GetOSInfo returns a one-line description, e.g. "Operating System: linux (Ubuntu 22.04)"
func (d *Detector) GetOSInfo() string {
	info, err := d.DetectSystemInfo()
	if err != nil {
		return fmt.Sprintf("Operating System: %s (Error: %v)", d.osType, err)
	}
	return fmt.Sprintf("Operating System: %s (%s %s)", d.osType, info.Name, info.Version)
}

// CheckDDCSupport checks if the tooling the backend depends on is installed.
// tool only applies on Linux.
func (d *Detector) CheckDDCSupport(tool string) (bool, string) {
	if tool == "" {
		tool = defaultDDCTool
	}

	switch d.osType {
	case OSLinux:
		if path, err := exec.LookPath(tool); err == nil {
			return true, fmt.Sprintf("DDC/CI support detected via %s", path)
		}
		return false, fmt.Sprintf("%s not found, install it and make sure the i2c-dev module is loaded", tool)
	case OSMacOS:
		for _, d := range []dialect{m1ddcDialect{}, ddcctlDialect{}} {
			if path, err := exec.LookPath(d.binary()); err == nil {
				return true, fmt.Sprintf("DDC/CI support detected via %s", path)
			}
		}
		return false, "neither m1ddc nor ddcctl found, install one with Homebrew"
	}
	return false, fmt.Sprintf("DDC/CI automation is not supported on %s", d.osType)
}

// DetectSystemInfo gathers kernel information via uname and, on Linux, the
// distribution from /etc/os-release.
func (d *Detector) DetectSystemInfo() (*SystemInfo, error) {
	info := &SystemInfo{OS: d.osType}

	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return nil, fmt.Errorf("uname: %w", err)
	}
	info.Name = unix.ByteSliceToString(utsname.Sysname[:])
	info.Kernel = unix.ByteSliceToString(utsname.Release[:])
	info.Architecture = unix.ByteSliceToString(utsname.Machine[:])

	if d.osType != OSLinux {
		return info, nil
	}

	file, err := os.Open("/etc/os-release")
	if err != nil {
		// Kernel info alone is still useful
		return info, nil
	}
	defer file.Close()

	parseOSRelease(bufio.NewScanner(file), info)

	return info, nil
}

func parseOSRelease(scanner *bufio.Scanner, info *SystemInfo) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		switch key {
		case "NAME":
			info.Name = value
		case "VERSION_ID":
			info.Version = value
		case "VERSION":
			if info.Version == "" {
				info.Version = value
			}
		}
	}
}
