package ddc

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// GetOSInfo returns a one-line description, e.g. "Operating System: windows (Windows 11 Pro 10.0)"
func (d *Detector) GetOSInfo() string {
	info, err := d.DetectSystemInfo()
	if err != nil {
		return fmt.Sprintf("Operating System: %s (Error: %v)", d.osType, err)
	}

	return fmt.Sprintf("Operating System: %s (%s %s)", d.osType, info.Name, info.Version)
}

// CheckDDCSupport checks that the monitor configuration API can be loaded.
func (d *Detector) CheckDDCSupport(_ string) (bool, string) {
	if err := windows.NewLazySystemDLL("dxva2.dll").Load(); err != nil {
		return false, fmt.Sprintf("dxva2.dll could not be loaded: %v", err)
	}
	return true, "DDC/CI support detected via dxva2.dll"
}

func (d *Detector) DetectSystemInfo() (*SystemInfo, error) {
	info := &SystemInfo{OS: d.osType, Architecture: windowsArchitecture()}

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry key: %w", err)
	}
	defer key.Close()

	if productName, _, err := key.GetStringValue("ProductName"); err == nil {
		info.Name = productName
	}
	if version, _, err := key.GetStringValue("CurrentVersion"); err == nil {
		info.Version = version
	}
	// Display Version (Windows 10 20H1+) reads better than "6.3"
	if displayVersion, _, err := key.GetStringValue("DisplayVersion"); err == nil {
		info.Version = displayVersion
	}
	if build, _, err := key.GetStringValue("CurrentBuild"); err == nil {
		info.Build = build
	}

	if info.Name == "" && info.Version == "" && info.Build == "" {
		return nil, fmt.Errorf("no useful information found in registry")
	}

	maj, min, build := windows.RtlGetNtVersionNumbers()
	info.Kernel = fmt.Sprintf("%d.%d.%d", maj, min, build)

	return info, nil
}

func windowsArchitecture() string {
	if arch := os.Getenv("PROCESSOR_ARCHITECTURE"); arch != "" {
		return arch
	}

	switch runtime.GOARCH {
	case "amd64":
		return "AMD64"
	case "386":
		return "x86"
	case "arm64":
		return "ARM64"
	default:
		return runtime.GOARCH
	}
}
