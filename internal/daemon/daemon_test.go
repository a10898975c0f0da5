package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"inputswitch/internal/automation"
	"inputswitch/internal/ddc"
	"inputswitch/internal/ipc"
	"inputswitch/internal/logger"
	"inputswitch/internal/mixer"
)

const baseConfig = `
display: "1"
main_input: hdmi1
second_input: hdmi2
keybind: ctrl+alt+s
poll_interval_ms: 100
`

type fakeMuter struct {
	mu     sync.Mutex
	calls  []bool
	closed bool
}

func (f *fakeMuter) SetMute(_ context.Context, _ int, mute bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, mute)
	return nil
}

func (f *fakeMuter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

func (f *fakeMuter) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

type muterFactory struct {
	mu    sync.Mutex
	built []*fakeMuter
}

func (m *muterFactory) build(mixer.Config, zerolog.Logger) (mixer.Muter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := &fakeMuter{}
	m.built = append(m.built, f)
	return f, nil
}

func (m *muterFactory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.built)
}

func writeConfig(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}

func newTestDaemon(t *testing.T, doc string) (*Daemon, *ddc.MockBackend, string) {
	t.Helper()

	ctrl := gomock.NewController(t)
	backend := ddc.NewMockBackend(ctrl)
	backend.EXPECT().
		ReadFeature(gomock.Any(), "1", ddc.InputSourceCode).
		Return(ddc.VCPValue{ddc.InputHDMI1}, nil).
		AnyTimes()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, doc)

	d := New(Options{ConfigPath: path, Backend: backend}, logger.NewTestLogger())
	t.Cleanup(d.Close)

	return d, backend, path
}

func TestReloadAppliesConfigFile(t *testing.T) {
	d, _, _ := newTestDaemon(t, baseConfig)

	require.NoError(t, d.Reload())

	require.Eventually(t, func() bool {
		return d.Status().ObservedInput == ddc.InputHDMI1
	}, 2*time.Second, 10*time.Millisecond)

	st := d.Status()
	assert.Equal(t, "1", st.DisplayID)
	assert.Equal(t, ddc.InputHDMI2, st.SecondInput)
	assert.False(t, st.HotkeyActive)
}

func TestReloadKeepsRunningConfigOnInvalidFile(t *testing.T) {
	d, _, path := newTestDaemon(t, baseConfig)
	require.NoError(t, d.Reload())

	writeConfig(t, path, "display: \"1\"\nmain_input: hdmi1\nsecond_input: hdmi1\n")
	require.Error(t, d.Reload())

	assert.Equal(t, ddc.InputHDMI2, d.Status().SecondInput)
}

func TestReloadWithoutFileUsesDefaults(t *testing.T) {
	d := New(Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")}, logger.NewTestLogger())
	t.Cleanup(d.Close)

	require.NoError(t, d.Reload())
	assert.Equal(t, automation.Unknown, d.Status().ObservedInput)
	assert.Empty(t, d.Status().DisplayID)
}

func TestToggleWritesOtherInput(t *testing.T) {
	d, backend, _ := newTestDaemon(t, baseConfig)
	backend.EXPECT().
		WriteFeature(gomock.Any(), "1", ddc.InputSourceCode, ddc.InputHDMI2).
		Return(nil)

	require.NoError(t, d.Reload())
	require.Eventually(t, func() bool {
		return d.Status().ObservedInput == ddc.InputHDMI1
	}, 2*time.Second, 10*time.Millisecond)

	res, err := d.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Target: ddc.InputHDMI2, Name: "HDMI-2"}, res)
}

func TestToggleBeforeReload(t *testing.T) {
	d := New(Options{}, logger.NewTestLogger())

	_, err := d.Toggle(context.Background())
	assert.ErrorIs(t, err, automation.ErrNotConfigured)
}

func TestMixerRebuiltOnlyWhenSectionChanges(t *testing.T) {
	factory := &muterFactory{}
	withMixer := baseConfig + "mixer:\n  enabled: true\n  channel: 1\n"

	d, _, path := newTestDaemon(t, withMixer)
	d.opts.NewMuter = factory.build

	require.NoError(t, d.Reload())
	require.Equal(t, 1, factory.count())
	assert.True(t, d.Status().MixerSync)

	// Channel lives outside the mixer client config.
	writeConfig(t, path, baseConfig+"mixer:\n  enabled: true\n  channel: 3\n")
	require.NoError(t, d.Reload())
	assert.Equal(t, 1, factory.count())

	writeConfig(t, path, baseConfig+"mixer:\n  enabled: true\n  kind: voicemeeter\n")
	require.NoError(t, d.Reload())
	require.Equal(t, 2, factory.count())
	assert.True(t, factory.built[0].isClosed())

	writeConfig(t, path, baseConfig)
	require.NoError(t, d.Reload())
	assert.True(t, factory.built[1].isClosed())
	assert.False(t, d.Status().MixerSync)
}

func TestHandle(t *testing.T) {
	d, _, _ := newTestDaemon(t, baseConfig)
	require.NoError(t, d.Reload())

	out, err := d.Handle(context.Background(), ipc.Request{Type: ipc.TypeStatus})
	require.NoError(t, err)
	assert.IsType(t, automation.Status{}, out)

	_, err = d.Handle(context.Background(), ipc.Request{Type: ipc.TypeReload})
	require.NoError(t, err)

	_, err = d.Handle(context.Background(), ipc.Request{Type: "mute"})
	assert.ErrorIs(t, err, ipc.ErrUnknownRequest)
}

func TestRunServesControlSocket(t *testing.T) {
	d, _, _ := newTestDaemon(t, baseConfig)

	dir, err := os.MkdirTemp("", "isd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "d.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, socket) }()

	var st automation.Status
	require.Eventually(t, func() bool {
		return ipc.Send(context.Background(), socket, ipc.TypeStatus, &st) == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "1", st.DisplayID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, automation.Unknown, d.Status().ObservedInput)
}

func TestRunRefusesSecondDaemon(t *testing.T) {
	first, _, _ := newTestDaemon(t, baseConfig)
	second, _, _ := newTestDaemon(t, baseConfig)

	dir, err := os.MkdirTemp("", "isd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "d.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx, socket) }()

	require.Eventually(t, func() bool {
		return ipc.Send(context.Background(), socket, ipc.TypeStatus, nil) == nil
	}, 2*time.Second, 20*time.Millisecond)

	secondDone := make(chan error, 1)
	go func() { secondDone <- second.Run(ctx, socket) }()
	select {
	case err := <-secondDone:
		require.ErrorIs(t, err, ipc.ErrAlreadyRunning)
	case <-time.After(3 * time.Second):
		t.Fatal("second daemon kept running next to the first")
	}

	var st automation.Status
	require.NoError(t, ipc.Send(context.Background(), socket, ipc.TypeStatus, &st))
	assert.Equal(t, "1", st.DisplayID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
