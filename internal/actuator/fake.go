package actuator

import "sync"

// Fake is a heater stand-in for tests and bench runs without hardware.
//
// It records every switch so tests can assert on the duty-cycle
// pattern, and reports itself as simulated so the orchestrator can
// slow the control loop down.
type Fake struct {
	mu       sync.Mutex
	on       bool
	switches []bool

	// FailOn, if set, makes On return this error.
	FailOn error
}

// NewFake creates a Fake with the heater off.
func NewFake() *Fake {
	return &Fake{}
}

// On records the heater being energised.
func (f *Fake) On() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailOn != nil {
		return f.FailOn
	}
	f.on = true
	f.switches = append(f.switches, true)
	return nil
}

// Off records the heater being de-energised.
func (f *Fake) Off() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.switches = append(f.switches, false)
	return nil
}

// IsOn reports the current heater state.
func (f *Fake) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Switches returns the recorded switch history, true for On.
func (f *Fake) Switches() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := make([]bool, len(f.switches))
	copy(cpy, f.switches)
	return cpy
}

// Simulated marks this actuator as a stand-in without hardware.
func (f *Fake) Simulated() bool {
	return true
}
