//go:generate mockgen -destination=mock_backend.go -package=ddc inputswitch/internal/ddc Backend

package ddc

import (
	"context"
	"errors"
	"runtime"
)

// OSType represents the operating system type
type OSType string

const (
	OSLinux   OSType = "linux"
	OSMacOS   OSType = "darwin"
	OSWindows OSType = "windows"
)

// VCPCode names a Virtual Control Panel feature.
type VCPCode uint8

const (
	BrightnessCode  VCPCode = 0x10
	ContrastCode    VCPCode = 0x12
	InputSourceCode VCPCode = 0x60
	VolumeCode      VCPCode = 0x62
)

var (
	// ErrBackendUnavailable means the transport (tool or library) cannot be reached.
	ErrBackendUnavailable = errors.New("ddc backend unavailable")
	// ErrUnsupportedPlatform means no backend variant is registered for the running OS.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrFeatureReadFailed   = errors.New("vcp feature read failed")
	ErrFeatureWriteFailed  = errors.New("vcp feature write failed")
)

// Backend is the contract every display-control transport implements.
//
// Init is idempotent. ListDisplays returns an empty slice when nothing is
// attached and only fails on transport errors. ReadFeature and WriteFeature
// wrap ErrFeatureReadFailed and ErrFeatureWriteFailed respectively; neither
// retries.
type Backend interface {
	Init(ctx context.Context) error
	ListDisplays(ctx context.Context) ([]DisplayDescriptor, error)
	ReadFeature(ctx context.Context, displayID string, code VCPCode) (VCPValue, error)
	WriteFeature(ctx context.Context, displayID string, code VCPCode, value int) error
}

// DisplayDescriptor identifies one physical display
type DisplayDescriptor struct {
	ID    string // Platform specific identifier passed back to the backend
	Label string // Human-readable name extracted from backend output
}

// VCPValue is a feature reply. Most replies carry a single integer, some
// transports return several.
type VCPValue []int

// First returns the first integer of the reply, if any.
func (v VCPValue) First() (int, bool) {
	if len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// Detector is the main OS detection struct
type Detector struct {
	osType OSType
}

// NewDetector creates a new OS detector instance
func NewDetector() *Detector {
	return &Detector{
		osType: OSType(runtime.GOOS),
	}
}

// GetOSType returns the current operating system type
func (d *Detector) GetOSType() OSType {
	return d.osType
}

// SystemInfo is the host description printed by the detect command.
type SystemInfo struct {
	OS           OSType
	Name         string // Distribution or product name (e.g. "Ubuntu", "Windows 11 Pro")
	Version      string // Version (e.g. "22.04", "10.0")
	Build        string // Build number, Windows only
	Kernel       string // Kernel release (e.g. "6.5.0-14-generic")
	Architecture string // Machine architecture (e.g. "x86_64", "AMD64")
}
