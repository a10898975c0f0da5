package automation

import (
	"context"
	"errors"
	"sync"

	"inputswitch/internal/ddc"
)

type fakeHotkeys struct {
	mu      sync.Mutex
	fail    error
	entries map[string]func()
	history []string
}

func newFakeHotkeys() *fakeHotkeys {
	return &fakeHotkeys{entries: make(map[string]func())}
}

func (f *fakeHotkeys) Register(combo string, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return f.fail
	}
	if _, taken := f.entries[combo]; taken {
		return errors.New("already registered")
	}
	f.entries[combo] = fn
	f.history = append(f.history, "+"+combo)
	return nil
}

func (f *fakeHotkeys) Unregister(combo string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.entries, combo)
	f.history = append(f.history, "-"+combo)
}

// fire runs the callback bound to combo synchronously.
func (f *fakeHotkeys) fire(combo string) bool {
	f.mu.Lock()
	fn, ok := f.entries[combo]
	f.mu.Unlock()

	if ok {
		fn()
	}
	return ok
}

func (f *fakeHotkeys) live() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	combos := make([]string, 0, len(f.entries))
	for c := range f.entries {
		combos = append(combos, c)
	}
	return combos
}

type write struct {
	display string
	code    ddc.VCPCode
	value   int
}

// fakeBackend answers reads with a settable value and records writes.
type fakeBackend struct {
	mu      sync.Mutex
	value   int
	readErr error
	reads   int
	writes  []write
}

func (f *fakeBackend) Init(context.Context) error { return nil }

func (f *fakeBackend) ListDisplays(context.Context) ([]ddc.DisplayDescriptor, error) {
	return []ddc.DisplayDescriptor{{ID: "D1", Label: "DELL U2720Q"}}, nil
}

func (f *fakeBackend) ReadFeature(_ context.Context, _ string, _ ddc.VCPCode) (ddc.VCPValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return ddc.VCPValue{f.value}, nil
}

func (f *fakeBackend) WriteFeature(_ context.Context, displayID string, code ddc.VCPCode, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes = append(f.writes, write{displayID, code, value})
	return nil
}

func (f *fakeBackend) set(value int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.value = value
}

func (f *fakeBackend) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads
}

func (f *fakeBackend) recordedWrites() []write {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]write(nil), f.writes...)
}

type muteCall struct {
	channel int
	mute    bool
}

type fakeMuter struct {
	mu    sync.Mutex
	err   error
	calls []muteCall
}

func (f *fakeMuter) SetMute(_ context.Context, channel int, mute bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, muteCall{channel, mute})
	return f.err
}

func (f *fakeMuter) last() (muteCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		return muteCall{}, false
	}
	return f.calls[len(f.calls)-1], true
}

type fakeStartup struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (f *fakeStartup) SetRunOnStart(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, enabled)
	return f.err
}
