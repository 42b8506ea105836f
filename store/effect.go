package store

import (
	"context"
	"time"
)

// EffectFunc handles one dispatched action given the state at dispatch time,
// before the action's own reduction. The returned channel is the lazy
// sequence of follow-up actions: it may be empty, finite, or unbounded, and
// closing it marks natural completion. A nil return means no effect.
//
// The function itself must return promptly; real work belongs on a goroutine
// feeding the channel. In particular it must not call Send synchronously —
// dispatch is still being serialized while effects are registered. Internal
// failures cannot cross the channel: absorb them into an action or drop
// them.
//
// ctx is cancelled when the subscription is cancelled or replaced by a
// value-equal dispatch. Cancellation is cooperative; an emission already
// buffered may still be delivered.
type EffectFunc[S comparable, A any] func(ctx context.Context, action A, state S) <-chan A

// None is the empty, already-completed action sequence.
func None[A any]() <-chan A {
	out := make(chan A)
	close(out)
	return out
}

// EmitOne runs fn on its own goroutine and yields its action if ok, then
// completes. fn is expected to honor ctx while it waits.
func EmitOne[A any](ctx context.Context, fn func(context.Context) (A, bool)) <-chan A {
	out := make(chan A, 1)
	go func() {
		defer close(out)
		a, ok := fn(ctx)
		if !ok {
			return
		}
		select {
		case out <- a:
		case <-ctx.Done():
		}
	}()
	return out
}

// After yields action once the delay has elapsed, unless cancelled first.
func After[A any](ctx context.Context, delay time.Duration, action A) <-chan A {
	return EmitOne(ctx, func(ctx context.Context) (A, bool) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return action, true
		case <-ctx.Done():
			var zero A
			return zero, false
		}
	})
}

// Every yields action each time the interval elapses, until cancelled.
func Every[A any](ctx context.Context, interval time.Duration, action A) <-chan A {
	out := make(chan A)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- action:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
