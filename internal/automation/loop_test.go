package automation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"inputswitch/internal/ddc"
	"inputswitch/internal/hotkey"
	"inputswitch/internal/logger"
)

var scenario = Config{
	DisplayID:   "D1",
	MainInput:   ddc.InputHDMI1,
	SecondInput: ddc.InputHDMI2,
	Keybind:     "Ctrl+Alt+S",
}

func TestToggleTarget(t *testing.T) {
	tests := []struct {
		name     string
		observed int
		want     int
	}{
		{"on second goes to main", 0x12, 0x11},
		{"on main goes to second", 0x11, 0x12},
		{"unknown goes to second", Unknown, 0x12},
		{"other input goes to second", 0x0F, 0x12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToggleTarget(tt.observed, 0x11, 0x12))
		})
	}
}

func TestLoopEndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := ddc.NewMockBackend(ctrl)
	hotkeys := newFakeHotkeys()

	gomock.InOrder(
		backend.EXPECT().ReadFeature(gomock.Any(), "D1", ddc.InputSourceCode).Return(ddc.VCPValue{0x11}, nil),
		backend.EXPECT().WriteFeature(gomock.Any(), "D1", ddc.InputSourceCode, 0x12).Return(nil),
		backend.EXPECT().ReadFeature(gomock.Any(), "D1", ddc.InputSourceCode).Return(ddc.VCPValue{0x12}, nil),
		backend.EXPECT().WriteFeature(gomock.Any(), "D1", ddc.InputSourceCode, 0x11).Return(nil),
	)

	loop := NewLoop(backend, scenario, nil, logger.NewTestLogger())
	defer loop.Stop()
	require.NoError(t, loop.BindHotkey(hotkeys))

	loop.Tick(context.Background())
	assert.Equal(t, 0x11, loop.Observed())

	require.True(t, hotkeys.fire("Ctrl+Alt+S"))
	// Writes never move the observed value; only the next poll does.
	assert.Equal(t, 0x11, loop.Observed())

	loop.Tick(context.Background())
	assert.Equal(t, 0x12, loop.Observed())

	require.True(t, hotkeys.fire("Ctrl+Alt+S"))
}

func TestLoopFailedReadKeepsPreviousValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := ddc.NewMockBackend(ctrl)
	gomock.InOrder(
		backend.EXPECT().ReadFeature(gomock.Any(), "D1", ddc.InputSourceCode).Return(ddc.VCPValue{0x0F}, nil),
		backend.EXPECT().ReadFeature(gomock.Any(), "D1", ddc.InputSourceCode).Return(nil, ddc.ErrFeatureReadFailed),
		backend.EXPECT().ReadFeature(gomock.Any(), "D1", ddc.InputSourceCode).Return(ddc.VCPValue{}, nil),
	)

	loop := NewLoop(backend, scenario, nil, logger.NewTestLogger())
	defer loop.Stop()

	assert.Equal(t, Unknown, loop.Observed())

	loop.Tick(context.Background())
	assert.Equal(t, 0x0F, loop.Observed())

	loop.Tick(context.Background())
	assert.Equal(t, 0x0F, loop.Observed())

	loop.Tick(context.Background())
	assert.Equal(t, 0x0F, loop.Observed())
	assert.Equal(t, uint64(3), loop.Polls())
}

func TestLoopToggleUnknownTargetsSecond(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backend := ddc.NewMockBackend(ctrl)
	backend.EXPECT().WriteFeature(gomock.Any(), "D1", ddc.InputSourceCode, 0x12).Return(ddc.ErrFeatureWriteFailed)

	loop := NewLoop(backend, scenario, nil, logger.NewTestLogger())
	defer loop.Stop()

	target, err := loop.Toggle(context.Background())
	assert.Equal(t, 0x12, target)
	assert.ErrorIs(t, err, ddc.ErrFeatureWriteFailed)
	assert.Equal(t, Unknown, loop.Observed())
}

func TestLoopToggleNeedsInputs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	loop := NewLoop(ddc.NewMockBackend(ctrl), Config{DisplayID: "D1", MainInput: 0x11}, nil, logger.NewTestLogger())
	defer loop.Stop()

	_, err := loop.Toggle(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLoopStopReleasesHotkeyAndIgnoresLateCallbacks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No calls are expected on the backend.
	backend := ddc.NewMockBackend(ctrl)
	hotkeys := newFakeHotkeys()

	loop := NewLoop(backend, scenario, nil, logger.NewTestLogger())
	require.NoError(t, loop.BindHotkey(hotkeys))
	assert.True(t, loop.HotkeyBound())

	var callback func()
	hotkeys.mu.Lock()
	callback = hotkeys.entries["Ctrl+Alt+S"]
	hotkeys.mu.Unlock()

	loop.Stop()
	loop.Stop()

	assert.Empty(t, hotkeys.live())
	assert.False(t, loop.HotkeyBound())

	// A callback already dispatched when Stop ran must not reach the backend.
	callback()
	loop.Tick(context.Background())

	_, err := loop.Toggle(context.Background())
	assert.ErrorIs(t, err, ErrLoopStopped)
	assert.ErrorIs(t, loop.BindHotkey(hotkeys), ErrLoopStopped)
	assert.Equal(t, uint64(0), loop.Polls())
}

func TestLoopBindHotkeyOnce(t *testing.T) {
	loop := NewLoop(&fakeBackend{}, scenario, nil, logger.NewTestLogger())
	defer loop.Stop()

	hotkeys := newFakeHotkeys()
	require.NoError(t, loop.BindHotkey(hotkeys))

	err := loop.BindHotkey(hotkeys)
	assert.ErrorIs(t, err, hotkey.ErrHotkeyRegistrationFailed)
	assert.Len(t, hotkeys.live(), 1)
}

func TestLoopBindHotkeyFailure(t *testing.T) {
	loop := NewLoop(&fakeBackend{}, scenario, nil, logger.NewTestLogger())
	defer loop.Stop()

	hotkeys := newFakeHotkeys()
	hotkeys.fail = errors.New("combination claimed by another process")

	err := loop.BindHotkey(hotkeys)
	assert.ErrorIs(t, err, hotkey.ErrHotkeyRegistrationFailed)
	assert.False(t, loop.HotkeyBound())
}

func TestLoopStopNeverStarted(t *testing.T) {
	loop := NewLoop(&fakeBackend{}, Config{}, nil, logger.NewTestLogger())
	loop.Stop()
	loop.Start()

	assert.Equal(t, uint64(0), loop.Polls())
}

func TestLoopPolls(t *testing.T) {
	backend := &fakeBackend{value: 0x12}

	cfg := scenario
	cfg.PollInterval = 5 * time.Millisecond

	loop := NewLoop(backend, cfg, nil, logger.NewTestLogger())
	loop.Start()

	assert.Eventually(t, func() bool { return backend.readCount() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 0x12, loop.Observed())

	loop.Stop()
	reads := backend.readCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, reads, backend.readCount(), "no reads after Stop")
}

// blockingBackend parks every read until released or cancelled.
type blockingBackend struct {
	fakeBackend
	entered atomic.Int32
	release chan struct{}
}

func (b *blockingBackend) ReadFeature(ctx context.Context, _ string, _ ddc.VCPCode) (ddc.VCPValue, error) {
	b.entered.Add(1)

	select {
	case <-b.release:
		return ddc.VCPValue{0x11}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLoopSkipsTicksWhileReadInFlight(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{})}

	cfg := scenario
	cfg.PollInterval = 2 * time.Millisecond
	cfg.CallTimeout = time.Minute

	loop := NewLoop(backend, cfg, nil, logger.NewTestLogger())
	loop.Start()
	defer loop.Stop()

	require.Eventually(t, func() bool { return backend.entered.Load() == 1 }, time.Second, time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), backend.entered.Load(), "ticks must not queue behind a hung read")

	close(backend.release)

	assert.Eventually(t, func() bool { return backend.entered.Load() > 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return loop.Observed() == 0x11 }, time.Second, time.Millisecond)
}

func TestLoopStopCancelsInFlightRead(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{})}

	cfg := scenario
	cfg.CallTimeout = time.Minute

	loop := NewLoop(backend, cfg, nil, logger.NewTestLogger())
	loop.Start()

	require.Eventually(t, func() bool { return backend.entered.Load() == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		loop.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, Unknown, loop.Observed())
}
