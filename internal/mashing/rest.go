package mashing

import (
	"fmt"
	"sync"
	"time"
)

// RestState is the lifecycle state of a rest.
//
// The ladder is strictly ordered. A rest only ever moves
// inactive -> heating -> active -> {completed | waiting_complete} ->
// completed, and finally back to inactive when the run ends or is
// terminated. Any other transition is rejected with ErrIllegalRestState.
type RestState string

const (
	StateInactive        RestState = "inactive"
	StateHeating         RestState = "heating"
	StateActive          RestState = "active"
	StateWaitingComplete RestState = "waiting_complete"
	StateCompleted       RestState = "completed"
)

// Rest describes one hold step of a mash: bring the liquid to the
// target temperature, hold it for the target duration, then either
// continue automatically or wait for manual confirmation.
//
// Target temperature, duration and the continue flag are immutable
// after construction. State and the activation timestamp are mutated
// by the executer driving this rest, and by the orchestrator during
// termination and end-of-run reset.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Rest struct {
	name        string
	temperature float64
	duration    time.Duration
	auto        bool

	mu          sync.Mutex
	state       RestState
	activatedAt time.Time
	next        *Rest
}

// NewRest creates an inactive rest.
//
// Parameters:
//   - name: Display name of the rest (e.g. "maltose", "mash-out")
//   - temperature: Target temperature in degrees Celsius
//   - duration: How long to hold once the target is reached
//   - auto: Continue to the next rest without manual confirmation
func NewRest(name string, temperature float64, duration time.Duration, auto bool) *Rest {
	return &Rest{
		name:        name,
		temperature: temperature,
		duration:    duration,
		auto:        auto,
		state:       StateInactive,
	}
}

// Name returns the display name.
func (r *Rest) Name() string { return r.name }

// Temperature returns the target temperature in degrees Celsius.
func (r *Rest) Temperature() float64 { return r.temperature }

// Duration returns the hold duration.
func (r *Rest) Duration() time.Duration { return r.duration }

// ContinuesAutomatically reports whether the rest advances without
// manual confirmation once the hold duration has elapsed.
func (r *Rest) ContinuesAutomatically() bool { return r.auto }

// State returns the current lifecycle state.
func (r *Rest) State() RestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ActivatedAt returns when the rest entered StateActive. It is zero
// before the first activation.
func (r *Rest) ActivatedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activatedAt
}

// Next returns the following rest in the chain, or nil at the tail.
func (r *Rest) Next() *Rest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

// setNext links the following rest. The orchestrator owns chain shape.
func (r *Rest) setNext(next *Rest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = next
}

// SetState advances the rest along the lifecycle ladder.
//
// Entering StateActive records the activation timestamp, which the
// executer needs to measure elapsed hold time.
//
// Returns:
//   - error: ErrIllegalRestState if the transition skips or regresses
//     the ladder, nil otherwise
func (r *Rest) SetState(state RestState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !validTransition(r.state, state) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalRestState, r.state, state)
	}

	r.state = state
	if state == StateActive {
		r.activatedAt = time.Now()
	}
	return nil
}

// reset forces the rest forward through the remainder of the ladder
// until it is inactive again. Used by the orchestrator at end of run
// and on termination so every rest is left startable.
func (r *Rest) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.state != StateInactive {
		switch r.state {
		case StateHeating:
			r.state = StateActive
		case StateActive, StateWaitingComplete:
			r.state = StateCompleted
		case StateCompleted:
			r.state = StateInactive
		}
	}
}

// validTransition reports whether from -> to is a legal ladder step.
func validTransition(from, to RestState) bool {
	switch from {
	case StateInactive:
		return to == StateHeating
	case StateHeating:
		return to == StateActive
	case StateActive:
		return to == StateCompleted || to == StateWaitingComplete
	case StateWaitingComplete:
		return to == StateCompleted
	case StateCompleted:
		return to == StateInactive
	}
	return false
}
