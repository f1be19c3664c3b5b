package button

import (
	"sync"
	"sync/atomic"
)

// Subscription identifies one registered listener on a button.
//
// Cancel is idempotent and safe to call from any goroutine, including
// from inside the listener's own invocation (one-shot listeners cancel
// themselves on first fire).
type Subscription struct {
	cancelled atomic.Bool
	remove    func(*Subscription)
	fn        Listener
}

// Cancel removes the listener from its button. Cancelling an
// already-cancelled subscription is a no-op.
func (s *Subscription) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.remove(s)
	}
}

// notifier implements the shared listener bookkeeping for buttons.
//
// Dispatch snapshots the listener list under the lock and invokes the
// snapshot outside it, so a listener may cancel itself (or any other
// subscription) during its own invocation without corrupting iteration.
// Listeners added during a dispatch see only later notifications.
type notifier struct {
	mu    sync.Mutex
	state State
	subs  []*Subscription
}

func newNotifier() notifier {
	return notifier{state: StateOff}
}

// State returns the current position.
func (n *notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// IsOn reports whether the button is currently pressed.
func (n *notifier) IsOn() bool {
	return n.State() == StateOn
}

// IsOff reports whether the button is currently released.
func (n *notifier) IsOff() bool {
	return n.State() == StateOff
}

// Subscribe registers a listener and returns its subscription handle.
func (n *notifier) Subscribe(fn Listener) *Subscription {
	sub := &Subscription{fn: fn, remove: n.remove}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	return sub
}

// remove drops a subscription from the registration list.
func (n *notifier) remove(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// set stores the new state and notifies every live listener, in
// registration order. Notification is unconditional: setting the same
// state again notifies again.
func (n *notifier) set(state State) {
	n.mu.Lock()
	n.state = state
	snapshot := make([]*Subscription, len(n.subs))
	copy(snapshot, n.subs)
	n.mu.Unlock()

	for _, sub := range snapshot {
		if !sub.cancelled.Load() {
			sub.fn(state)
		}
	}
}

// listenerCount returns the number of live subscriptions.
func (n *notifier) listenerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
