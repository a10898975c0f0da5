//go:build linux

package hotkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	epollTimeoutMs = 250
	maxEpollEvents = 16
	readBatch      = 64

	defaultRescanInterval = 2 * time.Second
)

var keyboardGlobs = []string{
	"/dev/input/by-path/*-event-kbd",
	"/dev/input/by-id/*-event-kbd",
}

// evdevRegistrar watches keyboards directly through evdev, so it works under
// X11 and Wayland alike. The user needs read access to the devices (usually
// membership of the "input" group).
type evdevRegistrar struct {
	devices []string
	logger  zerolog.Logger

	open     func(path string) (int, error)
	discover func() []string
	wait     func(epfd int, events []unix.EpollEvent, msec int) (int, error)
	rescan   time.Duration

	mu       sync.Mutex
	bindings *bindings[func()]
	running  bool
	closed   bool
	stop     chan struct{}
	done     chan struct{}
}

// NewRegistrar returns the evdev registrar. Devices are opened on the first
// Register call.
func NewRegistrar(opts Options, logger zerolog.Logger) (Registrar, error) {
	return newEvdevRegistrar(opts, logger), nil
}

func newEvdevRegistrar(opts Options, logger zerolog.Logger) *evdevRegistrar {
	return &evdevRegistrar{
		devices:  opts.Devices,
		logger:   logger,
		open:     openDevice,
		discover: discoverKeyboards,
		wait:     unix.EpollWait,
		rescan:   defaultRescanInterval,
		bindings: newBindings[func()](),
	}
}

func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}

func (r *evdevRegistrar) Register(combo string, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("%w: registrar closed", ErrHotkeyRegistrationFailed)
	}

	c, err := r.bindings.claim(combo)
	if err != nil {
		return err
	}

	if !r.running {
		if err := r.start(); err != nil {
			return fmt.Errorf("%w: %w", ErrHotkeyRegistrationFailed, err)
		}
	}

	r.bindings.entries[c] = fn
	r.logger.Debug().Str("combo", c.String()).Msg("hotkey bound")

	return nil
}

func (r *evdevRegistrar) Unregister(combo string) {
	c, err := ParseCombo(combo)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bindings.entries, c)
}

func (r *evdevRegistrar) Close() error {
	r.mu.Lock()
	r.closed = true
	running := r.running
	r.running = false
	stop, done := r.stop, r.done
	clear(r.bindings.entries)
	r.mu.Unlock()

	if running {
		close(stop)
		<-done
	}

	return nil
}

func (r *evdevRegistrar) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.running
}

func (r *evdevRegistrar) lookup(c Combo) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.bindings.entries[c]
}

func (r *evdevRegistrar) paths() []string {
	if len(r.devices) > 0 {
		return r.devices
	}
	return r.discover()
}

// start opens the keyboards and launches the epoll loop. Caller holds r.mu.
func (r *evdevRegistrar) start() error {
	paths := r.paths()
	if len(paths) == 0 {
		return errors.New("no keyboard devices found under /dev/input")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}

	fds := make(map[int32]string)
	r.attach(epfd, paths, fds)

	if len(fds) == 0 {
		unix.Close(epfd)
		return fmt.Errorf("none of %d input devices could be opened (is the user in the input group?)", len(paths))
	}

	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.running = true

	go r.loop(epfd, fds, r.stop, r.done)

	return nil
}

// attach opens every path not already in fds and adds it to the epoll set.
func (r *evdevRegistrar) attach(epfd int, paths []string, fds map[int32]string) {
	watched := make(map[string]bool, len(fds))
	for _, p := range fds {
		watched[p] = true
	}

	for _, path := range paths {
		if watched[path] {
			continue
		}

		fd, err := r.open(path)
		if err != nil {
			r.logger.Debug().Err(err).Str("device", path).Msg("cannot open input device")
			continue
		}

		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			r.logger.Warn().Err(err).Str("device", path).Msg("epoll_ctl_add failed")
			unix.Close(fd)
			continue
		}

		fds[int32(fd)] = path
		r.logger.Debug().Str("device", path).Msg("watching input device")
	}
}

func discoverKeyboards() []string {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range keyboardGlobs {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			target, err := filepath.EvalSymlinks(m)
			if err != nil || seen[target] {
				continue
			}
			seen[target] = true
			paths = append(paths, target)
		}
	}

	return paths
}

// loop waits on every keyboard with one epoll instance. The timeout lets it
// notice stop without an extra wakeup fd. With every keyboard gone it keeps
// rescanning until one comes back. On exit it clears running so the next
// Register starts a fresh loop.
func (r *evdevRegistrar) loop(epfd int, fds map[int32]string, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		for fd := range fds {
			unix.Close(int(fd))
		}
		unix.Close(epfd)

		r.mu.Lock()
		if r.done == done {
			r.running = false
		}
		r.mu.Unlock()

		close(done)
	}()

	state := newKeyState()
	events := make([]unix.EpollEvent, maxEpollEvents)
	buf := make([]byte, inputEventSize*readBatch)
	var lastScan time.Time

	for {
		select {
		case <-stop:
			return
		default:
		}

		if len(fds) == 0 && time.Since(lastScan) >= r.rescan {
			lastScan = time.Now()
			r.attach(epfd, r.paths(), fds)
			if len(fds) > 0 {
				r.logger.Info().Int("devices", len(fds)).Msg("input devices back, hotkeys enabled")
			}
		}

		n, err := r.wait(epfd, events, epollTimeoutMs)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			r.logger.Error().Err(err).Msg("epoll_wait failed, hotkeys disabled")
			return
		}

		for i := 0; i < n; i++ {
			fd := events[i].Fd

			if events[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				r.logger.Warn().Str("device", fds[fd]).Msg("input device went away")
				_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
				unix.Close(int(fd))
				delete(fds, fd)
				state.reset()
				if len(fds) == 0 {
					r.logger.Warn().Msg("no input devices left, waiting for a keyboard")
					lastScan = time.Now()
				}
				continue
			}

			r.drain(int(fd), buf, state)
		}
	}
}

func (r *evdevRegistrar) drain(fd int, buf []byte, state *keyState) {
	for {
		n, err := unix.Read(fd, buf)
		if err != nil || n <= 0 {
			return
		}

		reader := bytes.NewReader(buf[:n-n%inputEventSize])
		for reader.Len() > 0 {
			var ev inputEvent
			if err := binary.Read(reader, binary.NativeEndian, &ev); err != nil {
				break
			}

			combo, ok := state.handle(ev)
			if !ok {
				continue
			}
			if fn := r.lookup(combo); fn != nil {
				go fn()
			}
		}

		if n < len(buf) {
			return
		}
	}
}
