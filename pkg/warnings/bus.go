package warnings

import "sync"

// Subscription receives warnings from a Bus.
type Subscription struct {
	C  <-chan Warning
	ch chan Warning
}

// Bus fans out warnings to all active subscribers. It is safe for concurrent
// use.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewBus creates a Bus ready for use.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *Bus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Warning, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish sends a warning to all subscribers. A subscriber whose buffer is
// full misses the warning; publishing never blocks the caller.
func (b *Bus) Publish(w Warning) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- w:
		default:
		}
	}
}
