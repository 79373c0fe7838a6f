// Package lifecycle coordinates subsystem startup checks and ordered
// shutdown for a long-running process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Hook is a named startup or shutdown step.
type Hook func(ctx context.Context) error

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

type namedHook struct {
	name string
	fn   Hook
}

// Coordinator runs startup hooks concurrently as they are registered and
// runs shutdown hooks concurrently when Shutdown is called. The process is
// ready once every startup hook has returned without error.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup sync.WaitGroup
	started atomic.Bool

	mu       sync.Mutex
	failures map[string]error
	shutdown []namedHook
}

// New creates a Coordinator whose context is cancelled by Shutdown.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		failures: make(map[string]error),
	}
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn in the background. A returned error marks the
// process not ready and is reported by Failures.
func (c *Coordinator) OnStartup(name string, fn Hook) {
	c.startup.Go(func() {
		if err := fn(c.ctx); err != nil {
			c.mu.Lock()
			c.failures[name] = err
			c.mu.Unlock()
		}
	})
}

// OnShutdown registers fn to run during Shutdown. fn receives a context
// bounded by the shutdown timeout.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = append(c.shutdown, namedHook{name: name, fn: fn})
}

// Ready reports whether startup finished without failures.
func (c *Coordinator) Ready() bool {
	if !c.started.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures) == 0
}

// Failures returns a copy of the startup errors keyed by hook name.
func (c *Coordinator) Failures() map[string]error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.failures)
}

// WaitForStartup blocks until every startup hook has returned and reports
// their joined failures.
func (c *Coordinator) WaitForStartup() error {
	c.startup.Wait()
	c.started.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make([]error, 0, len(c.failures))
	for name, err := range c.failures {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errors.Join(errs...)
}

// Shutdown cancels Context, runs every shutdown hook and waits for them
// within timeout. Hook errors are joined into the result.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.mu.Lock()
	hooks := c.shutdown
	c.shutdown = nil
	c.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, h := range hooks {
		wg.Go(func() {
			if err := h.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				mu.Unlock()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		mu.Lock()
		defer mu.Unlock()
		return errors.Join(errs...)
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
