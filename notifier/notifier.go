// Package notifier broadcasts a payload-free "reports changed" signal to any
// number of observers. Observers re-read the store when they wake up, so a
// missed or merged signal loses nothing.
package notifier

import "sync"

// Notifier fans a change signal out to subscribers without ever blocking the publisher
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
	hooks  []func()
}

// New creates an empty notifier
func New() *Notifier {
	return &Notifier{subs: make(map[int]chan struct{})}
}

// Subscribe registers an observer. The channel receives at most one pending
// signal at a time; the returned func unsubscribes and closes the channel.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// OnPublish registers fn to run on every local Publish. fn must not block.
func (n *Notifier) OnPublish(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hooks = append(n.hooks, fn)
}

// Publish signals every subscriber and runs the publish hooks. A subscriber
// that already has a signal pending is skipped.
func (n *Notifier) Publish() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliver()
	for _, fn := range n.hooks {
		fn()
	}
}

// Deliver signals subscribers without running hooks. Used for signals that
// originated elsewhere.
func (n *Notifier) Deliver() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliver()
}

func (n *Notifier) deliver() {
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of active subscribers
func (n *Notifier) Len() int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
