//go:build !windows

package ddc

import (
	"errors"
)

var errNativeUnsupported = errors.New("native DDC binding is only available on Windows")

type unsupportedMonitorAPI struct{}

func newMonitorAPI() monitorAPI {
	return unsupportedMonitorAPI{}
}

func (unsupportedMonitorAPI) load() error { return errNativeUnsupported }

func (unsupportedMonitorAPI) enumerate() ([]physicalMonitor, error) {
	return nil, errNativeUnsupported
}

func (unsupportedMonitorAPI) getVCP(uintptr, VCPCode) (uint32, uint32, error) {
	return 0, 0, errNativeUnsupported
}

func (unsupportedMonitorAPI) setVCP(uintptr, VCPCode, uint32) error { return errNativeUnsupported }

func (unsupportedMonitorAPI) destroy([]uintptr) {}
