// Package event is the typed listener registry used by the peer
// registry and the transaction pool.
//
// Feed is a single-type publish/subscribe channel, generic over the
// payload it carries. Each component that needs to publish owns its own
// Feed rather than sharing one heterogeneous bus, unlike go-ethereum's
// protocol manager, which threads a single *event.TypeMux through its
// subsystems.
package event

import "sync"

// Subscription is returned by Feed.Subscribe. The caller must range over
// Chan() and call Unsubscribe when done.
type Subscription[T any] struct {
	ch   chan T
	feed *Feed[T]
	once sync.Once
}

func (s *Subscription[T]) Chan() <-chan T { return s.ch }

func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.ch)
	})
}

// Feed fans a value of type T out to every current subscriber. Send
// never blocks on a slow subscriber beyond the subscriber's own buffer;
// a full subscriber channel simply misses the event, matching the
// best-effort nature of the rest of the gossip layer.
type Feed[T any] struct {
	mu   sync.Mutex
	subs map[*Subscription[T]]struct{}
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a new listener with the given channel buffer size.
func (f *Feed[T]) Subscribe(buffer int) *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, buffer), feed: f}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *Feed[T]) remove(sub *Subscription[T]) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

// Send delivers v to every current subscriber and reports how many
// subscribers received it. Callers must invoke Send outside of any lock
// they hold on the emitting component's state.
func (f *Feed[T]) Send(v T) int {
	f.mu.Lock()
	subs := make([]*Subscription[T], 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	n := 0
	for _, s := range subs {
		select {
		case s.ch <- v:
			n++
		default:
		}
	}
	return n
}
