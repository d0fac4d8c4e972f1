package dashboard

import "sync"

// Notifier fans out "dashboard changed" signals to live subscribers.
// Each subscriber has a one-slot buffer; a signal arriving while one is
// pending is dropped, so slow clients only ever see the latest state.
type Notifier struct {
	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
}

// NewNotifier creates a notifier without subscribers
func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[chan struct{}]struct{})}
}

// Subscribe returns a signal channel and a function that removes it
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subscribers[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, ch)
			n.mu.Unlock()
		})
	}
}

// Broadcast signals every subscriber without blocking
func (n *Notifier) Broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Count returns the number of subscribers
func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}
