package multicast

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Caster is an ordered broadcast primitive. Every subscriber receives every
// published value in publish order; subscribers never see each other's pace.
// A caster built with replay enabled hands the most recently published value
// to each new subscriber before anything else.
//
// Publish never blocks: each subscriber owns an unbounded backlog flushed by
// its own goroutine, so a slow consumer cannot stall the publisher or its
// sibling subscribers.
type Caster[T any] struct {
	mu     sync.Mutex
	subs   map[string]*subscriber[T]
	replay bool
	last   T
	primed bool
}

func NewCaster[T any](replayLatest bool) *Caster[T] {
	return &Caster[T]{
		subs:   make(map[string]*subscriber[T]),
		replay: replayLatest,
	}
}

// Prime seeds the replay value without delivering it to current subscribers.
func (c *Caster[T]) Prime(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = v
	c.primed = true
}

// Publish appends v to every live subscriber's backlog. Calls made from a
// single goroutine are observed by all subscribers in call order.
func (c *Caster[T]) Publish(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = v
	c.primed = true
	for _, sub := range c.subs {
		sub.push(v)
	}
}

// Subscribe registers a new observer. The returned channel closes when ctx
// is done. With replay enabled the latest value, if any, arrives first.
func (c *Caster[T]) Subscribe(ctx context.Context) <-chan T {
	id := uuid.NewString()
	sub := newSubscriber[T]()

	c.mu.Lock()
	if c.replay && c.primed {
		sub.push(c.last)
	}
	c.subs[id] = sub
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		sub.close()
	}()

	out := make(chan T)
	go sub.flush(ctx, out)
	return out
}

// NumSubscribers reports the current number of live subscribers.
func (c *Caster[T]) NumSubscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

type subscriber[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	backlog []T
	closed  bool
}

func newSubscriber[T any]() *subscriber[T] {
	s := &subscriber[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.backlog = append(s.backlog, v)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *subscriber[T]) flush(ctx context.Context, out chan<- T) {
	defer close(out)
	for {
		s.mu.Lock()
		for len(s.backlog) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		v := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.mu.Unlock()

		select {
		case out <- v:
		case <-ctx.Done():
			return
		}
	}
}
