package ddc

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Factory builds a backend variant.
type Factory func(logger zerolog.Logger) Backend

// BackendOptions are the user-tunable knobs shared by all variants.
type BackendOptions struct {
	DDCUtilPath     string
	CommandTimeout  time.Duration
	RefreshInterval time.Duration
}

// DefaultVariants registers the shell backend on Linux and macOS and the
// native binding on Windows.
func DefaultVariants(opts BackendOptions) map[OSType]Factory {
	return map[OSType]Factory{
		OSLinux: func(logger zerolog.Logger) Backend {
			return NewShellBackend(logger, WithTool(opts.DDCUtilPath), WithCommandTimeout(opts.CommandTimeout))
		},
		OSMacOS: func(logger zerolog.Logger) Backend {
			return NewShellBackend(logger, WithMacOSTools(), WithCommandTimeout(opts.CommandTimeout))
		},
		OSWindows: func(logger zerolog.Logger) Backend {
			return NewNativeBackend(logger, WithRefreshInterval(opts.RefreshInterval))
		},
	}
}

type resolverState int

const (
	stateUninitialized resolverState = iota
	stateReady
	stateFailed
)

func (s resolverState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Resolver picks the backend variant for the running platform and
// initializes it exactly once. A failed initialization is final.
type Resolver struct {
	osType   OSType
	variants map[OSType]Factory
	logger   zerolog.Logger

	once    sync.Once
	mu      sync.Mutex
	state   resolverState
	backend Backend
	err     error
}

func NewResolver(osType OSType, variants map[OSType]Factory, logger zerolog.Logger) *Resolver {
	return &Resolver{
		osType:   osType,
		variants: variants,
		logger:   logger,
	}
}

// NewDefaultResolver resolves against runtime.GOOS with the default variants.
func NewDefaultResolver(opts BackendOptions, logger zerolog.Logger) *Resolver {
	return NewResolver(OSType(runtime.GOOS), DefaultVariants(opts), logger)
}

// Resolve looks up the factory for the platform without side effects.
func (r *Resolver) Resolve() (Factory, error) {
	factory, ok := r.variants[r.osType]
	if !ok || factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, r.osType)
	}
	return factory, nil
}

// Backend returns the initialized backend, building and initializing it on
// the first call. Later calls return the recorded outcome.
func (r *Resolver) Backend(ctx context.Context) (Backend, error) {
	r.once.Do(func() {
		backend, err := r.initialize(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()

		if err != nil {
			r.state, r.err = stateFailed, err
			return
		}
		r.state, r.backend = stateReady, backend
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backend, r.err
}

func (r *Resolver) initialize(ctx context.Context) (Backend, error) {
	factory, err := r.Resolve()
	if err != nil {
		return nil, err
	}

	backend := factory(r.logger)
	if err := backend.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", r.osType, err)
	}

	r.logger.Debug().Str("os", string(r.osType)).Msgf("ddc backend ready (%T)", backend)

	return backend, nil
}

// State reports "uninitialized", "ready" or "failed".
func (r *Resolver) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state.String()
}
