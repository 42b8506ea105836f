package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// subscription is a live, cancellable handle to one running effect sequence.
type subscription struct {
	id     string
	key    string
	idx    int // index of the effect handler that produced the sequence
	cancel context.CancelFunc
}

// subscriptionTable maps derived keys to the live handles of in-flight
// effect sequences, one slot per attached handler.
type subscriptionTable struct {
	mu      sync.Mutex
	entries map[string]map[int]*subscription
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{entries: make(map[string]map[int]*subscription)}
}

// replace installs sub under (key, idx) and returns the handle it displaced,
// if any. The caller cancels the displaced handle.
func (t *subscriptionTable) replace(key string, idx int, sub *subscription) *subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	byIdx, ok := t.entries[key]
	if !ok {
		byIdx = make(map[int]*subscription)
		t.entries[key] = byIdx
	}
	prev := byIdx[idx]
	byIdx[idx] = sub
	return prev
}

// remove drops the handle under (key, idx) only while it is still the one
// identified by id, so a finished sequence never evicts its replacement.
func (t *subscriptionTable) remove(key string, idx int, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byIdx, ok := t.entries[key]
	if !ok {
		return
	}
	if cur, ok := byIdx[idx]; ok && cur.id == id {
		delete(byIdx, idx)
	}
	if len(byIdx) == 0 {
		delete(t.entries, key)
	}
}

// cancelAll cancels every live handle under key and reports how many there
// were. Unknown keys are a no-op.
func (t *subscriptionTable) cancelAll(key string) int {
	t.mu.Lock()
	byIdx := t.entries[key]
	subs := make([]*subscription, 0, len(byIdx))
	for _, sub := range byIdx {
		subs = append(subs, sub)
	}
	delete(t.entries, key)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	return len(subs)
}

func (t *subscriptionTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, byIdx := range t.entries {
		n += len(byIdx)
	}
	return n
}

// subscriptionKey derives the table key for an action from the feature
// identity, the action's variant tag, and a hash of its full payload
// rendering. Value-equal actions collide deliberately (restart semantics);
// distinct payloads of the same variant never do.
func subscriptionKey(featureID string, action any) string {
	payload := fmt.Sprintf("%#v", action)
	return fmt.Sprintf("%s/%T/%016x", featureID, action, xxhash.Sum64String(payload))
}
