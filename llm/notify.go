package llm

import "sync"

// Notifier is an explicit event-notification mechanism for provider state
// changes: a state mutation publishes an event, and each subscription handle
// unsubscribes when released. The zero value is ready to use.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

// Subscription is a handle for one registered callback.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Unsubscribe removes the callback. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe registers fn to be called on every Notify.
func (n *Notifier) Subscribe(fn func()) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn

	return &Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}}
}

// Notify invokes all current subscribers. Callbacks run outside the
// notifier's lock, so they may subscribe or unsubscribe freely.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
