// Package store implements a unidirectional state container.
//
// A Store owns one immutable state value for one Feature. Callers dispatch
// typed actions through Send; a pure reducer derives the next state, effect
// handlers observe the action together with the state at dispatch time, and
// the resulting state is committed on a delivery context shared by every
// store in the process.
//
// # Dispatch
//
// Send calls on one store are serialized. Each call reduces against the
// latest pending candidate, so dispatches issued before a commit has been
// delivered fold onto each other in order and no intermediate reduction is
// lost. The commit itself is always an asynchronous hop: Send returns once
// its reduce and effect-registration steps are done, never waiting for
// observers.
//
// # Effects
//
// An EffectFunc receives the dispatched action and the state as it was
// before that action's own reduction, and returns a channel of follow-up
// actions. Every emission re-enters Send through the shared delivery
// context. In-flight sequences are cancellable, cooperatively, through
// Cancel or by dispatching an action variant implementing CancelRequest.
//
// # Composition
//
// Stores never share mutable state. A parent observes a child through
// Transform or Link, which forward the child's dispatched actions through a
// mapping function into the parent's Send.
package store
