package multicast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/oneway_go/internal/multicast"
)

func recv[T any](t *testing.T, ch <-chan T, n int) []T {
	t.Helper()
	out := make([]T, 0, n)
	for len(out) < n {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d values", len(out), n)
		}
	}
	return out
}

func TestCaster_ReplaysLatestToNewSubscriber(t *testing.T) {
	caster := multicast.NewCaster[int](true)
	caster.Prime(7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := caster.Subscribe(ctx)

	assert.Equal(t, []int{7}, recv(t, sub, 1))

	caster.Publish(8)
	assert.Equal(t, []int{8}, recv(t, sub, 1))
}

func TestCaster_NoReplayMode(t *testing.T) {
	caster := multicast.NewCaster[int](false)
	caster.Publish(7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := caster.Subscribe(ctx)

	caster.Publish(8)
	assert.Equal(t, []int{8}, recv(t, sub, 1))
}

func TestCaster_BroadcastsInPublishOrder(t *testing.T) {
	caster := multicast.NewCaster[int](true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := caster.Subscribe(ctx)
	second := caster.Subscribe(ctx)

	for i := 0; i < 50; i++ {
		caster.Publish(i)
	}

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, recv(t, first, 50))
	assert.Equal(t, want, recv(t, second, 50))
}

func TestCaster_SlowSubscriberDoesNotStallPublisher(t *testing.T) {
	caster := multicast.NewCaster[int](false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stalled := caster.Subscribe(ctx) // never read until the end
	_ = stalled

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			caster.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher stalled on an unread subscriber")
	}
	assert.Equal(t, 0, <-stalled)
}

func TestCaster_SubscriptionEndsWithContext(t *testing.T) {
	caster := multicast.NewCaster[int](false)

	ctx, cancel := context.WithCancel(context.Background())
	sub := caster.Subscribe(ctx)
	require.Equal(t, 1, caster.NumSubscribers())

	cancel()
	require.Eventually(t, func() bool {
		return caster.NumSubscribers() == 0
	}, time.Second, 10*time.Millisecond)

	for {
		select {
		case _, ok := <-sub:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	}
}
