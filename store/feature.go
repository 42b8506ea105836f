package store

// Feature is the static contract of one state-management slice: a state
// shape, an action shape, a pure reducer, and the effect handlers, bound to
// a stable identity.
//
// State types are comparable values; structural equality is the language's
// own. A state that should be traceable additionally implements
// trace.Fielder.
type Feature[S comparable, A any] struct {
	// ID is the stable identity of the feature. It keys the global registry
	// and namespaces subscription keys, so it must be unique per feature.
	ID string

	// Reducer computes the next state from the current state and a
	// dispatched action. It must be total: variants it does not model must
	// map to the identity transform, never to a failure.
	Reducer func(state S, action A) S

	// Effects observe every dispatched action together with the state at
	// dispatch time and may emit follow-up actions.
	Effects []EffectFunc[S, A]
}

// CancelRequest is the reserved action variant carrying another action whose
// in-flight effect sequences should be cancelled. A store intercepts such
// actions before reduction: no state transition, no effect start, and no
// trace event is produced for the cancellation itself.
type CancelRequest interface {
	CancelTarget() any
}
