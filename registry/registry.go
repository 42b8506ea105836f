// Package registry is the process-wide map from feature identity to one
// shared store instance. It lets independently-constructed call sites
// resolve the same container without passing references around.
//
// Registration is first-wins for the life of the process; lookups on
// unregistered or differently-typed entries are soft failures reported
// through the logger, never panics.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/on-the-ground/oneway_go/shared/helper"
	"github.com/on-the-ground/oneway_go/store"
)

// entry remembers its store's concrete types through typed values captured
// at registration, so a lookup with the wrong type parameters resolves to a
// definite miss instead of a silent downcast.
type entry struct {
	observe any // func(context.Context) <-chan S
	send    func(action any) bool
}

type registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  *zap.Logger
}

var (
	globalOnce sync.Once
	global     *registry
)

func globalRegistry() *registry {
	globalOnce.Do(func() {
		logger, _ := zap.NewProduction()
		global = &registry{
			entries: make(map[string]entry),
			logger:  logger,
		}
	})
	return global
}

// RegisterState creates a store for the feature with the given initial
// state iff none is registered under its identity yet, and reports whether
// a registration actually occurred. Later calls for the same identity are
// no-ops: the first registration wins, so state already being observed is
// never silently reset.
func RegisterState[S comparable, A any](feature store.Feature[S, A], initial S, opts ...store.Option) bool {
	g := globalRegistry()
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entries[feature.ID]; ok {
		g.logger.Warn("duplicate registration ignored", zap.String("feature", feature.ID))
		return false
	}

	st := store.New(feature, initial, opts...)
	g.entries[feature.ID] = entry{
		observe: st.Observe,
		send: func(action any) bool {
			act, ok := helper.TypedValue[A](action)
			if !ok {
				return false
			}
			st.Send(act)
			return true
		},
	}
	g.logger.Debug("feature registered", zap.String("feature", feature.ID))
	return true
}

// LookupObserve returns the registered store's committed-state stream. An
// unregistered identity, or one registered with a different state type,
// yields (nil, false) and a diagnostic — registration/use ordering across
// call sites is expected, not a crash.
func LookupObserve[S comparable](ctx context.Context, featureID string) (<-chan S, bool) {
	g := globalRegistry()
	g.mu.RLock()
	e, ok := g.entries[featureID]
	g.mu.RUnlock()

	if !ok {
		g.logger.Warn("observe on unregistered feature", zap.String("feature", featureID))
		return nil, false
	}
	observe, ok := helper.TypedValue[func(context.Context) <-chan S](e.observe)
	if !ok {
		g.logger.Warn("state type mismatch on observe", zap.String("feature", featureID))
		return nil, false
	}
	return observe(ctx), true
}

// LookupSend forwards the action to the registered store's Send. It is a
// no-op, with a diagnostic, when the identity is unregistered or the action
// type does not match the registered feature's.
func LookupSend(featureID string, action any) bool {
	g := globalRegistry()
	g.mu.RLock()
	e, ok := g.entries[featureID]
	g.mu.RUnlock()

	if !ok {
		g.logger.Warn("send to unregistered feature", zap.String("feature", featureID))
		return false
	}
	if !e.send(action) {
		g.logger.Warn("action type mismatch on send", zap.String("feature", featureID))
		return false
	}
	return true
}

// Registered reports whether an entry exists for the identity.
func Registered(featureID string) bool {
	g := globalRegistry()
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.entries[featureID]
	return ok
}

// Reset clears every entry so test suites can start from an unregistered
// world between cases. Production code never calls it.
func Reset() {
	g := globalRegistry()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[string]entry)
}
