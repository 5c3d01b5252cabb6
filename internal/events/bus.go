package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAwaitTimeout is reported when no matching event arrives within the bound.
var ErrAwaitTimeout = errors.New("events: await timed out")

// Bus correlates an externally triggered request with the inbound notification
// it provokes. Topics are namespaced by charger identity and action so waiters
// never observe another charger's traffic. Subscriptions are single-shot.
type Bus struct {
	mu      sync.Mutex
	waiters map[string][]*Waiter
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{waiters: make(map[string][]*Waiter)}
}

// Waiter is a single-shot subscription. Await consumes it.
type Waiter struct {
	bus   *Bus
	topic string
	ch    chan json.RawMessage
}

func topicKey(identity, action string) string {
	return fmt.Sprintf("%s/%s", identity, action)
}

// Publish delivers payload to every waiter registered for the topic and
// removes them. Without waiters it is a no-op.
func (b *Bus) Publish(identity, action string, payload json.RawMessage) {
	key := topicKey(identity, action)

	b.mu.Lock()
	waiters := b.waiters[key]
	delete(b.waiters, key)
	b.mu.Unlock()

	for _, w := range waiters {
		// Buffered channel, never blocks.
		w.ch <- payload
	}
}

// SubscribeOnce registers a waiter for the next event on the topic. The caller
// must either Await or Cancel it.
func (b *Bus) SubscribeOnce(identity, action string) *Waiter {
	w := &Waiter{
		bus:   b,
		topic: topicKey(identity, action),
		ch:    make(chan json.RawMessage, 1),
	}

	b.mu.Lock()
	b.waiters[w.topic] = append(b.waiters[w.topic], w)
	b.mu.Unlock()

	return w
}

// Await blocks until the event arrives, the timeout elapses, or ctx is done.
// On timeout the waiter is removed and ErrAwaitTimeout returned.
func (w *Waiter) Await(ctx context.Context, timeout time.Duration) (json.RawMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-w.ch:
		return payload, nil
	case <-timer.C:
		w.Cancel()
		return nil, ErrAwaitTimeout
	case <-ctx.Done():
		w.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel removes the waiter if it has not fired yet.
func (w *Waiter) Cancel() {
	w.bus.mu.Lock()
	defer w.bus.mu.Unlock()

	waiters := w.bus.waiters[w.topic]
	for i, candidate := range waiters {
		if candidate == w {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(w.bus.waiters, w.topic)
	} else {
		w.bus.waiters[w.topic] = waiters
	}
}
