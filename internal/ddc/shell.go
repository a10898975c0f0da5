package ddc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultDDCTool        = "ddcutil"
	defaultCommandTimeout = 5 * time.Second
)

// commandRunner runs an external tool and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return output, nil
}

// ShellBackend drives displays through a DDC command line tool: ddcutil on
// Linux, m1ddc or ddcctl on macOS.
type ShellBackend struct {
	dialects []dialect
	tool     string // overrides the binary of the first dialect
	timeout  time.Duration
	logger   zerolog.Logger

	run      commandRunner
	lookPath func(string) (string, error)

	mu       sync.Mutex
	active   dialect
	toolPath string
}

// ShellOption configures a ShellBackend
type ShellOption func(*ShellBackend)

// WithTool overrides the ddcutil binary name or path.
func WithTool(tool string) ShellOption {
	return func(b *ShellBackend) {
		if tool != "" {
			b.tool = tool
		}
	}
}

// WithCommandTimeout bounds every tool invocation.
func WithCommandTimeout(d time.Duration) ShellOption {
	return func(b *ShellBackend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithMacOSTools drives displays with m1ddc, falling back to ddcctl when
// m1ddc is not installed.
func WithMacOSTools() ShellOption {
	return func(b *ShellBackend) {
		b.dialects = []dialect{m1ddcDialect{}, ddcctlDialect{}}
		b.tool = ""
	}
}

func NewShellBackend(logger zerolog.Logger, opts ...ShellOption) *ShellBackend {
	b := &ShellBackend{
		dialects: []dialect{ddcutilDialect{}},
		timeout:  defaultCommandTimeout,
		logger:   logger,
		run:      execRunner,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Init resolves the first installed tool. Calls after the first success are
// no-ops.
func (b *ShellBackend) Init(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.toolPath != "" {
		return nil
	}

	var missing []string
	for i, d := range b.dialects {
		tool := d.binary()
		if i == 0 && b.tool != "" {
			tool = b.tool
		}

		path, err := b.lookPath(tool)
		if err != nil {
			missing = append(missing, fmt.Sprintf("%s not found: %v", tool, err))
			continue
		}

		b.active, b.toolPath = d, path
		b.logger.Debug().Str("tool", path).Msg("ddc tool resolved")

		return nil
	}

	return fmt.Errorf("%w: %s", ErrBackendUnavailable, strings.Join(missing, "; "))
}

// current returns the resolved dialect and binary, or the preferred ones
// before Init.
func (b *ShellBackend) current() (dialect, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		return b.active, b.toolPath
	}
	if b.tool != "" {
		return b.dialects[0], b.tool
	}
	return b.dialects[0], b.dialects[0].binary()
}

func (b *ShellBackend) command() string {
	_, tool := b.current()
	return tool
}

func (b *ShellBackend) invoke(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.run(ctx, name, args...)
}

// ListDisplays runs `ddcutil detect`, or system_profiler on macOS.
func (b *ShellBackend) ListDisplays(ctx context.Context) ([]DisplayDescriptor, error) {
	d, tool := b.current()
	name, args := d.listCommand(tool)

	output, err := b.invoke(ctx, name, args...)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", name, args[0], err)
	}

	return d.parseList(string(output))
}

// ReadFeature runs `ddcutil getvcp <code> --display=<id>` or the macOS
// tool's equivalent.
func (b *ShellBackend) ReadFeature(ctx context.Context, displayID string, code VCPCode) (VCPValue, error) {
	d, tool := b.current()

	args, err := d.getArgs(displayID, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeatureReadFailed, err)
	}

	output, err := b.invoke(ctx, tool, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: display %s code 0x%02X: %v", ErrFeatureReadFailed, displayID, uint8(code), err)
	}

	value, err := d.parseValue(string(output))
	if err != nil {
		return nil, fmt.Errorf("%w: display %s code 0x%02X: %v", ErrFeatureReadFailed, displayID, uint8(code), err)
	}

	return value, nil
}

// WriteFeature runs `ddcutil setvcp <code> <value> --display=<id>` or the
// macOS tool's equivalent. Switching is not critical, so a failure is logged
// and not returned.
func (b *ShellBackend) WriteFeature(ctx context.Context, displayID string, code VCPCode, value int) error {
	d, tool := b.current()

	args, err := d.setArgs(displayID, code, value)
	if err == nil {
		_, err = b.invoke(ctx, tool, args...)
	}
	if err != nil {
		b.logger.Warn().
			Err(fmt.Errorf("%w: %v", ErrFeatureWriteFailed, err)).
			Str("display", displayID).
			Str("code", formatCode(code)).
			Int("value", value).
			Msg("setvcp failed")
	}

	return nil
}

func formatCode(code VCPCode) string {
	return fmt.Sprintf("0x%02x", uint8(code))
}
