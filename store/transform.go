package store

import (
	"context"

	"go.uber.org/zap"
)

// Transform subscribes the store to an external action source and forwards
// each emitted value through mapFn into Send. Exactly one forwarding link
// may be live per source identity; registering again under the same id
// replaces the previous link. Forwarding stops when the source closes or
// the link is replaced or unlinked.
func Transform[S comparable, A, C any](s *Store[S, A], sourceID string, source <-chan C, mapFn func(C) A) {
	ctx := s.replaceLink(sourceID)
	go forward(ctx, source, s, mapFn)
}

// Link wires a child store's dispatched actions into the parent's Send,
// letting the child drive the parent's state without either store touching
// the other's internals. The child's feature identity is the link's source
// id.
func Link[PS comparable, PA any, CS comparable, CA any](
	parent *Store[PS, PA],
	child *Store[CS, CA],
	mapFn func(CA) PA,
) {
	ctx := parent.replaceLink(child.FeatureID())
	source := child.Actions(ctx)
	go forward(ctx, source, parent, mapFn)
}

// Unlink drops the forwarding link registered under sourceID, if any.
func (s *Store[S, A]) Unlink(sourceID string) {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if cancel, ok := s.links[sourceID]; ok {
		cancel()
		delete(s.links, sourceID)
	}
}

func (s *Store[S, A]) replaceLink(sourceID string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	s.linkMu.Lock()
	if prev, ok := s.links[sourceID]; ok {
		prev()
		s.logger.Debug("forwarding link replaced",
			zap.String("store", s.id),
			zap.String("source", sourceID),
		)
	}
	s.links[sourceID] = cancel
	s.linkMu.Unlock()
	return ctx
}

func forward[S comparable, A, C any](ctx context.Context, source <-chan C, s *Store[S, A], mapFn func(C) A) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-source:
			if !ok {
				return
			}
			s.Send(mapFn(v))
		}
	}
}
