package ddc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultRefreshInterval = 10 * time.Second

// physicalMonitor is one handle produced by the platform enumeration.
type physicalMonitor struct {
	id     string
	label  string
	handle uintptr
}

// monitorAPI is the syscall surface of the native binding. The Windows
// implementation lives in native_windows.go.
type monitorAPI interface {
	load() error
	enumerate() ([]physicalMonitor, error)
	getVCP(handle uintptr, code VCPCode) (current, maximum uint32, err error)
	setVCP(handle uintptr, code VCPCode, value uint32) error
	destroy(handles []uintptr)
}

// NativeBackend calls the platform monitor configuration API directly.
//
// Physical monitor handles go stale across sleep/resume, so a background
// refresh re-enumerates them on a fixed interval and swaps the cache.
type NativeBackend struct {
	api             monitorAPI
	refreshInterval time.Duration
	logger          zerolog.Logger

	initMu sync.Mutex
	loaded bool
	stop   chan struct{}
	done   chan struct{}

	mu       sync.RWMutex
	monitors map[string]physicalMonitor
	order    []string
}

// NativeOption configures a NativeBackend
type NativeOption func(*NativeBackend)

// WithRefreshInterval sets how often handles are re-enumerated.
func WithRefreshInterval(d time.Duration) NativeOption {
	return func(b *NativeBackend) {
		if d > 0 {
			b.refreshInterval = d
		}
	}
}

func NewNativeBackend(logger zerolog.Logger, opts ...NativeOption) *NativeBackend {
	return newNativeBackend(newMonitorAPI(), logger, opts...)
}

func newNativeBackend(api monitorAPI, logger zerolog.Logger, opts ...NativeOption) *NativeBackend {
	b := &NativeBackend{
		api:             api,
		refreshInterval: defaultRefreshInterval,
		logger:          logger,
		monitors:        make(map[string]physicalMonitor),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Init loads the platform library once and starts the refresh loop.
func (b *NativeBackend) Init(_ context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	if b.loaded {
		return nil
	}

	if err := b.api.load(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if _, err := b.refresh(); err != nil {
		b.logger.Debug().Err(err).Msg("initial monitor enumeration failed")
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.refreshLoop(b.stop, b.done)

	b.loaded = true

	return nil
}

// Close stops the refresh loop and releases every cached handle.
func (b *NativeBackend) Close() error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	if !b.loaded {
		return nil
	}

	close(b.stop)
	<-b.done
	b.loaded = false

	b.mu.Lock()
	stale := handlesOf(b.monitors)
	b.monitors = make(map[string]physicalMonitor)
	b.order = nil
	b.mu.Unlock()

	b.api.destroy(stale)

	return nil
}

func (b *NativeBackend) refreshLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Failures are expected while the system sleeps or resumes.
			_, _ = b.refresh()
		}
	}
}

// refresh re-enumerates monitors and swaps the cache. Readers hold the read
// lock for the duration of a native call, so old handles are only destroyed
// once no call can still be using them.
func (b *NativeBackend) refresh() ([]DisplayDescriptor, error) {
	found, err := b.api.enumerate()
	if err != nil {
		return nil, err
	}

	next := make(map[string]physicalMonitor, len(found))
	order := make([]string, 0, len(found))
	for _, m := range found {
		if _, dup := next[m.id]; dup {
			b.api.destroy([]uintptr{m.handle})
			continue
		}
		next[m.id] = m
		order = append(order, m.id)
	}

	b.mu.Lock()
	stale := handlesOf(b.monitors)
	b.monitors = next
	b.order = order
	b.mu.Unlock()

	b.api.destroy(stale)

	displays := make([]DisplayDescriptor, 0, len(order))
	for _, id := range order {
		displays = append(displays, DisplayDescriptor{ID: id, Label: next[id].label})
	}

	return displays, nil
}

func (b *NativeBackend) ready() error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	if !b.loaded {
		return fmt.Errorf("%w: native backend not initialized", ErrBackendUnavailable)
	}
	return nil
}

// ListDisplays enumerates the attached monitors afresh.
func (b *NativeBackend) ListDisplays(_ context.Context) ([]DisplayDescriptor, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	displays, err := b.refresh()
	if err != nil {
		return nil, fmt.Errorf("enumerate monitors: %w", err)
	}

	return displays, nil
}

// withMonitor runs fn against the cached handle for displayID, refreshing once
// if the display is not known yet.
func (b *NativeBackend) withMonitor(displayID string, fn func(physicalMonitor) error) error {
	if err := b.ready(); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		b.mu.RLock()
		m, ok := b.monitors[displayID]
		if ok {
			err := fn(m)
			b.mu.RUnlock()
			return err
		}
		b.mu.RUnlock()

		if attempt == 0 {
			if _, err := b.refresh(); err != nil {
				return fmt.Errorf("display %q not found: %w", displayID, err)
			}
		}
	}

	return fmt.Errorf("display %q not found", displayID)
}

// ReadFeature queries the current value of a VCP feature.
func (b *NativeBackend) ReadFeature(_ context.Context, displayID string, code VCPCode) (VCPValue, error) {
	var value VCPValue

	err := b.withMonitor(displayID, func(m physicalMonitor) error {
		current, _, err := b.api.getVCP(m.handle, code)
		if err != nil {
			return err
		}
		value = VCPValue{int(current)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: display %s code 0x%02X: %w", ErrFeatureReadFailed, displayID, uint8(code), err)
	}

	return value, nil
}

// WriteFeature sets a VCP feature value.
func (b *NativeBackend) WriteFeature(_ context.Context, displayID string, code VCPCode, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: negative value %d", ErrFeatureWriteFailed, value)
	}

	err := b.withMonitor(displayID, func(m physicalMonitor) error {
		return b.api.setVCP(m.handle, code, uint32(value))
	})
	if err != nil {
		return fmt.Errorf("%w: display %s code 0x%02X: %w", ErrFeatureWriteFailed, displayID, uint8(code), err)
	}

	return nil
}

func handlesOf(monitors map[string]physicalMonitor) []uintptr {
	handles := make([]uintptr, 0, len(monitors))
	for _, m := range monitors {
		handles = append(handles, m.handle)
	}
	return handles
}
