package button

// State represents the binary position of a button.
type State string

const (
	StateOn  State = "on"
	StateOff State = "off"
)

// Listener receives button state notifications.
//
// Listeners are invoked synchronously on whichever goroutine changed the
// button state, in registration order. A button notifies on every state
// set, not only on changes, so listeners must tolerate redundant
// same-state notifications.
type Listener func(State)

// Button is a binary on/off signal source that broadcasts state changes
// to registered listeners. Physical (GPIO) and virtual buttons share
// this contract, so the mashing orchestrator treats them uniformly.
type Button interface {
	// State returns the current position.
	State() State

	// IsOn reports whether the button is currently pressed.
	IsOn() bool

	// IsOff reports whether the button is currently released.
	IsOff() bool

	// Subscribe registers a listener and returns its subscription handle.
	// The listener stays registered until the handle is cancelled.
	Subscribe(fn Listener) *Subscription
}
