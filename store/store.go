package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/on-the-ground/oneway_go/internal/delivery"
	"github.com/on-the-ground/oneway_go/internal/multicast"
	"github.com/on-the-ground/oneway_go/trace"
)

// Store is a state container for one Feature. It holds exactly one
// authoritative committed state at any instant; all observers converge on
// the same sequence of committed states in the same order.
//
// Send, Observe, and Cancel are infallible at the API boundary and safe for
// concurrent use.
type Store[S comparable, A any] struct {
	id      string
	feature Feature[S, A]
	logger  *zap.Logger
	tracer  *trace.Tracer
	exec    *delivery.Executor

	// mu is the single-writer discipline: it serializes the
	// reduce-and-register-effects step of every Send.
	mu         sync.Mutex
	committed  S
	pending    S
	hasPending bool
	seq        uint64
	lastAction A
	hasLast    bool

	states  *multicast.Caster[S]
	actions *multicast.Caster[A]
	subs    *subscriptionTable

	linkMu sync.Mutex
	links  map[string]context.CancelFunc
}

// New constructs an isolated container holding initial as its committed
// state.
func New[S comparable, A any](feature Feature[S, A], initial S, opts ...Option) *Store[S, A] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger, _ = zap.NewProduction()
	}
	if cfg.tracer == nil {
		cfg.tracer = trace.Default()
	}
	if cfg.exec == nil {
		cfg.exec = delivery.Shared()
	}

	s := &Store[S, A]{
		id:        uuid.NewString(),
		feature:   feature,
		logger:    cfg.logger,
		tracer:    cfg.tracer,
		exec:      cfg.exec,
		committed: initial,
		states:    multicast.NewCaster[S](true),
		actions:   multicast.NewCaster[A](false),
		subs:      newSubscriptionTable(),
		links:     make(map[string]context.CancelFunc),
	}
	s.states.Prime(initial)
	s.logger.Debug("store created",
		zap.String("feature", feature.ID),
		zap.String("store", s.id),
	)
	return s
}

// FeatureID returns the identity of the feature this store holds state for.
func (s *Store[S, A]) FeatureID() string { return s.feature.ID }

// Send dispatches an action. It records the action as last-dispatched,
// reduces it against the latest pending candidate (or the committed state
// when none is pending), starts every effect handler with the pre-reduction
// state, and schedules commit of the candidate on the shared delivery
// context. Send returns once reduction and effect registration are done; it
// never waits for delivery.
//
// An action implementing CancelRequest is intercepted before reduction and
// resolved into a cancellation of the wrapped target's subscriptions.
func (s *Store[S, A]) Send(action A, opts ...SendOption) {
	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if req, ok := any(action).(CancelRequest); ok {
		s.mu.Lock()
		s.lastAction = action
		s.hasLast = true
		s.actions.Publish(action)
		s.mu.Unlock()

		s.cancelKey(subscriptionKey(s.feature.ID, req.CancelTarget()))
		return
	}

	s.mu.Lock()
	s.lastAction = action
	s.hasLast = true
	s.actions.Publish(action)

	base := s.committed
	if s.hasPending {
		base = s.pending
	}
	candidate := s.feature.Reducer(base, action)
	s.pending = candidate
	s.hasPending = true
	s.seq++
	seq := s.seq

	for idx, eff := range s.feature.Effects {
		s.startEffect(idx, eff, action, base)
	}

	// Enqueued before unlocking: commits must reach the executor in
	// dispatch order even when senders race. Do never blocks.
	s.exec.Do(func() {
		s.commit(cfg, action, candidate, seq)
	})
	s.mu.Unlock()
}

// commit runs on the delivery executor: it publishes the candidate to
// observers and, for traced dispatches, evaluates and emits the diff, in
// the order commits were scheduled.
func (s *Store[S, A]) commit(cfg sendConfig, action A, candidate S, seq uint64) {
	s.mu.Lock()
	old := s.committed
	s.committed = candidate
	if seq == s.seq {
		var zero S
		s.pending = zero
		s.hasPending = false
	}
	s.mu.Unlock()

	s.states.Publish(candidate)
	s.tracer.Emit(cfg.traced, cfg.label, action, any(old), any(candidate))
}

// startEffect registers a subscription for the action's derived key and
// begins consuming the handler's sequence. A previous in-flight sequence
// under the same key and handler slot is cancelled and replaced.
// Called with s.mu held.
func (s *Store[S, A]) startEffect(idx int, eff EffectFunc[S, A], action A, base S) {
	key := subscriptionKey(s.feature.ID, action)
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		id:     uuid.NewString(),
		key:    key,
		idx:    idx,
		cancel: cancel,
	}
	if prev := s.subs.replace(key, idx, sub); prev != nil {
		prev.cancel()
	}

	seq := eff(ctx, action, base)
	if seq == nil {
		s.subs.remove(key, idx, sub.id)
		cancel()
		return
	}
	go s.consume(ctx, sub, seq)
}

// consume drains one effect sequence, re-dispatching every emission through
// the shared delivery context. The table entry is removed on natural
// completion or cancellation. Cancellation is cooperative: an emission
// already buffered may still be delivered.
func (s *Store[S, A]) consume(ctx context.Context, sub *subscription, seq <-chan A) {
	defer func() {
		s.subs.remove(sub.key, sub.idx, sub.id)
		sub.cancel()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-seq:
			if !ok {
				return
			}
			s.exec.Do(func() { s.Send(a) })
		}
	}
}

// Cancel cancels the in-flight effect sequences keyed by the action's
// derived key. Cancelling an unknown or already-finished key is a no-op.
func (s *Store[S, A]) Cancel(action A) {
	s.cancelKey(subscriptionKey(s.feature.ID, action))
}

func (s *Store[S, A]) cancelKey(key string) {
	if n := s.subs.cancelAll(key); n == 0 {
		s.logger.Debug("cancel without live subscription",
			zap.String("store", s.id),
			zap.String("key", key),
		)
	}
}

// Observe subscribes to the committed-state stream. The channel immediately
// yields the current committed state, then every subsequently committed
// state in commit order, and closes only when ctx is done. Every observer
// sees the identical sequence.
func (s *Store[S, A]) Observe(ctx context.Context) <-chan S {
	return s.states.Subscribe(ctx)
}

// Actions subscribes to the dispatched-action stream, in dispatch order.
// Intended for diagnostics and for parent/child wiring via Transform.
func (s *Store[S, A]) Actions(ctx context.Context) <-chan A {
	return s.actions.Subscribe(ctx)
}

// LastAction returns the most recently dispatched action, if any.
func (s *Store[S, A]) LastAction() (A, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAction, s.hasLast
}

// State returns the current committed state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}
