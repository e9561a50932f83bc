// Package notify runs best-effort side effects after a primary write commits.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultHookTimeout bounds a single hook invocation.
const DefaultHookTimeout = 15 * time.Second

// Hook reacts to a committed event. Errors are logged by the Dispatcher.
type Hook interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, event Event) error
}

func (h HookFunc) Name() string { return h.HookName }

func (h HookFunc) Handle(ctx context.Context, event Event) error { return h.Fn(ctx, event) }

// Dispatcher invokes every hook in registration order, in the background.
// A failing, panicking or stalled hook never affects the caller or the
// remaining hooks.
type Dispatcher struct {
	hooks   []Hook
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, hooks ...Hook) *Dispatcher {
	return &Dispatcher{hooks: hooks, logger: logger, timeout: DefaultHookTimeout}
}

// Register appends a hook. Hooks are registered during wiring, before the
// first Dispatch.
func (d *Dispatcher) Register(hook Hook) {
	d.hooks = append(d.hooks, hook)
}

// SetHookTimeout changes the per-hook deadline.
func (d *Dispatcher) SetHookTimeout(timeout time.Duration) {
	d.timeout = timeout
}

// Dispatch hands event to the hooks and returns immediately. The hooks keep
// the request's values but not its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if d == nil || len(d.hooks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, hook := range d.hooks {
			if err := d.run(ctx, hook, event); err != nil {
				d.logger.Warn("Post-commit hook failed",
					zap.String("hook", hook.Name()),
					zap.String("event", event.EventName()),
					zap.Error(err),
				)
			}
		}
	}()
}

// Wait blocks until every dispatched event has been handled.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, hook Hook, event Event) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("hook panicked: %v", p)
			}
		}()
		done <- hook.Handle(ctx, event)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("hook abandoned: %w", ctx.Err())
	}
}
