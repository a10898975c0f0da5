package ddc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputswitch/internal/logger"
)

type fakeMonitorAPI struct {
	mu        sync.Mutex
	loadErr   error
	monitors  []physicalMonitor
	values    map[uintptr]uint32
	destroyed []uintptr
	enumCalls int
	nextID    uintptr
}

func newFakeMonitorAPI(ids ...string) *fakeMonitorAPI {
	f := &fakeMonitorAPI{values: make(map[uintptr]uint32)}
	f.setMonitors(ids...)
	return f
}

// setMonitors makes the next enumeration report ids, each with a fresh handle.
func (f *fakeMonitorAPI) setMonitors(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.monitors = nil
	for _, id := range ids {
		f.monitors = append(f.monitors, physicalMonitor{id: id, label: "label-" + id})
	}
}

func (f *fakeMonitorAPI) load() error { return f.loadErr }

func (f *fakeMonitorAPI) enumerate() ([]physicalMonitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enumCalls++

	out := make([]physicalMonitor, len(f.monitors))
	for i, m := range f.monitors {
		f.nextID++
		m.handle = f.nextID
		out[i] = m
	}
	return out, nil
}

func (f *fakeMonitorAPI) getVCP(handle uintptr, _ VCPCode) (uint32, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, h := range f.destroyed {
		if h == handle {
			return 0, 0, errors.New("invalid handle")
		}
	}
	return f.values[handle], 255, nil
}

func (f *fakeMonitorAPI) setVCP(handle uintptr, _ VCPCode, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[handle] = value
	return nil
}

func (f *fakeMonitorAPI) destroy(handles []uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.destroyed = append(f.destroyed, handles...)
}

func (f *fakeMonitorAPI) destroyedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.destroyed)
}

func TestNativeBackendRequiresInit(t *testing.T) {
	b := newNativeBackend(newFakeMonitorAPI("a"), logger.NewTestLogger())

	_, err := b.ListDisplays(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = b.ReadFeature(context.Background(), "a", InputSourceCode)
	assert.ErrorIs(t, err, ErrFeatureReadFailed)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestNativeBackendLoadFailure(t *testing.T) {
	api := newFakeMonitorAPI()
	api.loadErr = errors.New("dxva2.dll missing")

	b := newNativeBackend(api, logger.NewTestLogger())
	err := b.Init(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestNativeBackendListDisplays(t *testing.T) {
	api := newFakeMonitorAPI("a", "b", "a")
	b := newNativeBackend(api, logger.NewTestLogger(), WithRefreshInterval(time.Hour))
	require.NoError(t, b.Init(context.Background()))
	defer b.Close()

	displays, err := b.ListDisplays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []DisplayDescriptor{
		{ID: "a", Label: "label-a"},
		{ID: "b", Label: "label-b"},
	}, displays)
}

func TestNativeBackendReadWrite(t *testing.T) {
	api := newFakeMonitorAPI("a")
	b := newNativeBackend(api, logger.NewTestLogger(), WithRefreshInterval(time.Hour))
	require.NoError(t, b.Init(context.Background()))
	defer b.Close()

	require.NoError(t, b.WriteFeature(context.Background(), "a", InputSourceCode, 0x12))

	value, err := b.ReadFeature(context.Background(), "a", InputSourceCode)
	require.NoError(t, err)
	assert.Equal(t, VCPValue{0x12}, value)

	err = b.WriteFeature(context.Background(), "a", InputSourceCode, -1)
	assert.ErrorIs(t, err, ErrFeatureWriteFailed)
}

func TestNativeBackendUnknownDisplayRefreshesOnce(t *testing.T) {
	api := newFakeMonitorAPI("a")
	b := newNativeBackend(api, logger.NewTestLogger(), WithRefreshInterval(time.Hour))
	require.NoError(t, b.Init(context.Background()))
	defer b.Close()

	api.setMonitors("a", "late")

	_, err := b.ReadFeature(context.Background(), "late", InputSourceCode)
	require.NoError(t, err)

	_, err = b.ReadFeature(context.Background(), "missing", InputSourceCode)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeatureReadFailed)
	assert.Contains(t, err.Error(), `display "missing" not found`)
}

func TestNativeBackendRefreshLoopReplacesHandles(t *testing.T) {
	api := newFakeMonitorAPI("a")
	b := newNativeBackend(api, logger.NewTestLogger(), WithRefreshInterval(10*time.Millisecond))
	require.NoError(t, b.Init(context.Background()))
	defer b.Close()

	assert.Eventually(t, func() bool {
		return api.destroyedCount() >= 2
	}, time.Second, 5*time.Millisecond)

	// The cache only ever holds live handles.
	_, err := b.ReadFeature(context.Background(), "a", InputSourceCode)
	assert.NoError(t, err)
}

func TestNativeBackendCloseReleasesHandles(t *testing.T) {
	api := newFakeMonitorAPI("a", "b")
	b := newNativeBackend(api, logger.NewTestLogger(), WithRefreshInterval(time.Hour))
	require.NoError(t, b.Init(context.Background()))

	require.NoError(t, b.Close())
	assert.Equal(t, 2, api.destroyedCount())

	// Close is idempotent.
	require.NoError(t, b.Close())
	assert.Equal(t, 2, api.destroyedCount())

	_, err := b.ListDisplays(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
