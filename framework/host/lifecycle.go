package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Managed is an object whose start and stop are tied to the service's
// lifetime. Start is called before the servers accept traffic, Stop after
// they have shut down.
type Managed interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// LifeCycle is a self-describing component with its own running state.
type LifeCycle interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// lifeCycleAdapter manages a LifeCycle as a Managed object.
type lifeCycleAdapter struct{ lc LifeCycle }

func (a lifeCycleAdapter) Start(context.Context) error {
	if a.lc.IsRunning() {
		return nil
	}
	return a.lc.Start()
}

func (a lifeCycleAdapter) Stop(context.Context) error {
	if !a.lc.IsRunning() {
		return nil
	}
	return a.lc.Stop()
}

func (a lifeCycleAdapter) String() string { return fmt.Sprintf("%T", a.lc) }

// Lifecycle starts managed objects in registration order and stops them in
// reverse.
type Lifecycle struct {
	mu      sync.Mutex
	managed []Managed
	started int
	logger  *zap.Logger
}

// NewLifecycle returns an empty Lifecycle.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{logger: logger}
}

// Manage adds m to the lifecycle. An object already managed is not added
// again.
func (l *Lifecycle) Manage(m Managed) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.ContainsFunc(l.managed, func(o Managed) bool { return sameComponent(o, m) }) {
		return
	}
	l.managed = append(l.managed, m)
}

// ManageLifeCycle adds a LifeCycle component.
func (l *Lifecycle) ManageLifeCycle(lc LifeCycle) {
	l.Manage(lifeCycleAdapter{lc: lc})
}

// Len returns the number of managed objects.
func (l *Lifecycle) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.managed)
}

// Start starts every object not yet started. If one fails, the objects
// started so far are stopped again and the start error is returned.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.started < len(l.managed) {
		m := l.managed[l.started]
		if err := m.Start(ctx); err != nil {
			l.logger.Error("managed object failed to start", zap.Stringer("object", describe(m)), zap.Error(err))
			return errors.Join(fmt.Errorf("host: start %v: %w", describe(m), err), l.stopLocked(ctx))
		}
		l.logger.Debug("started managed object", zap.Stringer("object", describe(m)))
		l.started++
	}
	return nil
}

// Stop stops started objects in reverse order, attempting every one.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(ctx)
}

func (l *Lifecycle) stopLocked(ctx context.Context) error {
	var errs []error
	for l.started > 0 {
		l.started--
		m := l.managed[l.started]
		if err := m.Stop(ctx); err != nil {
			l.logger.Warn("managed object failed to stop", zap.Stringer("object", describe(m)), zap.Error(err))
			errs = append(errs, fmt.Errorf("host: stop %v: %w", describe(m), err))
		}
	}
	return errors.Join(errs...)
}

type stringer string

func (s stringer) String() string { return string(s) }

func describe(v any) fmt.Stringer {
	if s, ok := v.(fmt.Stringer); ok {
		return s
	}
	return stringer(fmt.Sprintf("%T", v))
}
