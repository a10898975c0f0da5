//go:build windows

package ddc

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	eddGetDeviceInterfaceName = 0x00000001
	displayDeviceActive       = 0x00000001
)

// MONITORINFOEXW
type monitorInfoEx struct {
	CbSize    uint32
	RcMonitor windows.Rect
	RcWork    windows.Rect
	DwFlags   uint32
	SzDevice  [32]uint16
}

// DISPLAY_DEVICEW
type displayDevice struct {
	Cb           uint32
	DeviceName   [32]uint16
	DeviceString [128]uint16
	StateFlags   uint32
	DeviceID     [128]uint16
	DeviceKey    [128]uint16
}

// PHYSICAL_MONITOR
type physicalMonitorW struct {
	Handle      windows.Handle
	Description [128]uint16
}

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	dxva2  = windows.NewLazySystemDLL("dxva2.dll")

	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = user32.NewProc("GetMonitorInfoW")
	procEnumDisplayDevicesW = user32.NewProc("EnumDisplayDevicesW")

	procGetNumberOfPhysicalMonitorsFromHMONITOR = dxva2.NewProc("GetNumberOfPhysicalMonitorsFromHMONITOR")
	procGetPhysicalMonitorsFromHMONITOR         = dxva2.NewProc("GetPhysicalMonitorsFromHMONITOR")
	procDestroyPhysicalMonitor                  = dxva2.NewProc("DestroyPhysicalMonitor")
	procGetVCPFeatureAndVCPFeatureReply         = dxva2.NewProc("GetVCPFeatureAndVCPFeatureReply")
	procSetVCPFeature                           = dxva2.NewProc("SetVCPFeature")
)

// Callbacks created with NewCallback are never freed, so a single one is
// shared by every enumeration and serialized by enumMu.
var (
	enumMu       sync.Mutex
	enumFound    []windows.Handle
	enumCallback = windows.NewCallback(func(hmon windows.Handle, _ windows.Handle, _ *windows.Rect, _ uintptr) uintptr {
		enumFound = append(enumFound, hmon)
		return 1
	})
)

type winMonitorAPI struct{}

func newMonitorAPI() monitorAPI {
	return winMonitorAPI{}
}

func (winMonitorAPI) load() error {
	for _, dll := range []*windows.LazyDLL{user32, dxva2} {
		if err := dll.Load(); err != nil {
			return fmt.Errorf("load %s: %w", dll.Name, err)
		}
	}

	procs := []*windows.LazyProc{
		procEnumDisplayMonitors,
		procGetMonitorInfoW,
		procEnumDisplayDevicesW,
		procGetNumberOfPhysicalMonitorsFromHMONITOR,
		procGetPhysicalMonitorsFromHMONITOR,
		procDestroyPhysicalMonitor,
		procGetVCPFeatureAndVCPFeatureReply,
		procSetVCPFeature,
	}
	for _, p := range procs {
		if err := p.Find(); err != nil {
			return fmt.Errorf("find %s: %w", p.Name, err)
		}
	}

	return nil
}

func (w winMonitorAPI) enumerate() ([]physicalMonitor, error) {
	hmonitors, err := enumDisplayMonitors()
	if err != nil {
		return nil, err
	}

	var monitors []physicalMonitor
	for _, hmon := range hmonitors {
		var info monitorInfoEx
		info.CbSize = uint32(unsafe.Sizeof(info))
		if r, _, _ := procGetMonitorInfoW.Call(uintptr(hmon), uintptr(unsafe.Pointer(&info))); r == 0 {
			continue
		}

		ids := deviceInterfaceIDs(&info.SzDevice[0])

		var count uint32
		r, _, _ := procGetNumberOfPhysicalMonitorsFromHMONITOR.Call(uintptr(hmon), uintptr(unsafe.Pointer(&count)))
		if r == 0 || count == 0 {
			continue
		}

		phys := make([]physicalMonitorW, count)
		r, _, _ = procGetPhysicalMonitorsFromHMONITOR.Call(uintptr(hmon), uintptr(count), uintptr(unsafe.Pointer(&phys[0])))
		if r == 0 {
			continue
		}

		adapter := windows.UTF16ToString(info.SzDevice[:])
		for i, p := range phys {
			desc := windows.UTF16ToString(p.Description[:])
			id := fmt.Sprintf("%s#%d", adapter, i)
			if i < len(ids) {
				id = ids[i]
			}
			monitors = append(monitors, physicalMonitor{
				id:     id,
				label:  labelFromDeviceID(id, desc),
				handle: uintptr(p.Handle),
			})
		}
	}

	return monitors, nil
}

func enumDisplayMonitors() ([]windows.Handle, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumFound = nil
	r, _, e := procEnumDisplayMonitors.Call(0, 0, enumCallback, 0)
	if r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", e)
	}

	found := enumFound
	enumFound = nil

	return found, nil
}

// deviceInterfaceIDs lists the interface paths of the active monitors
// attached to an adapter, in the same order dxva2 reports physical monitors.
func deviceInterfaceIDs(adapter *uint16) []string {
	var ids []string
	for i := uint32(0); ; i++ {
		var dev displayDevice
		dev.Cb = uint32(unsafe.Sizeof(dev))
		r, _, _ := procEnumDisplayDevicesW.Call(uintptr(unsafe.Pointer(adapter)), uintptr(i), uintptr(unsafe.Pointer(&dev)), eddGetDeviceInterfaceName)
		if r == 0 {
			break
		}
		if dev.StateFlags&displayDeviceActive == 0 {
			continue
		}
		ids = append(ids, windows.UTF16ToString(dev.DeviceID[:]))
	}
	return ids
}

func (winMonitorAPI) getVCP(handle uintptr, code VCPCode) (uint32, uint32, error) {
	var codeType, current, maximum uint32
	r, _, e := procGetVCPFeatureAndVCPFeatureReply.Call(
		handle,
		uintptr(code),
		uintptr(unsafe.Pointer(&codeType)),
		uintptr(unsafe.Pointer(&current)),
		uintptr(unsafe.Pointer(&maximum)),
	)
	if r == 0 {
		return 0, 0, fmt.Errorf("GetVCPFeatureAndVCPFeatureReply: %w", e)
	}

	return current, maximum, nil
}

func (winMonitorAPI) setVCP(handle uintptr, code VCPCode, value uint32) error {
	r, _, e := procSetVCPFeature.Call(handle, uintptr(code), uintptr(value))
	if r == 0 {
		return fmt.Errorf("SetVCPFeature: %w", e)
	}
	return nil
}

func (winMonitorAPI) destroy(handles []uintptr) {
	for _, h := range handles {
		_, _, _ = procDestroyPhysicalMonitor.Call(h)
	}
}
