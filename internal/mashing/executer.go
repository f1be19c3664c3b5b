package mashing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goodrick/brewcontrol/internal/actuator"
)

// tolerance is how far below target a reading may be while still
// counting the rest as having reached its temperature.
const tolerance = 0.3

// TemperatureReader provides the latest sensor reading without
// blocking.
type TemperatureReader interface {
	Temperature() float64
}

// dutyStep maps a temperature shortfall to a heater duty percentage.
// Delta is in tenths of a degree Celsius.
type dutyStep struct {
	delta   int
	percent int
}

// defaultDutyTable is the built-in step controller: far below target
// runs the heater flat out, progressively closer runs progressively
// lower duty, at or above target stays off. Operators can override it
// via configuration without touching code.
var defaultDutyTable = map[int]int{
	11: 100,
	10: 80,
	5:  75,
	4:  50,
	3:  30,
	2:  20,
	1:  10,
	0:  0,
}

// Executer drives one rest through its lifecycle.
//
// Each control interval it evaluates the state transition rules, then
// runs one duty cycle on the heater. It is created per rest by the
// orchestrator and discarded once the rest completes; the rest itself
// outlives it.
//
// Thread Safety:
//   - Run executes on a single goroutine. Subscribe and the transition
//     hook may be used from other goroutines before Run starts.
type Executer struct {
	rest     *Rest
	heater   actuator.Actuator
	temps    TemperatureReader
	interval time.Duration
	table    []dutyStep

	// onTransition, if set, is called after every state change. The
	// orchestrator uses it to record and publish state events.
	onTransition func(RestState)

	// onDuty, if set, is called with the chosen duty percentage each
	// control interval.
	onDuty func(int)

	mu        sync.Mutex
	listeners []func(RestState)
}

// NewExecuter creates an executer for one rest.
//
// Parameters:
//   - rest: The rest to drive
//   - heater: Heater actuator switched by the duty cycle
//   - temps: Latest-reading temperature source
//   - interval: Duty-cycle window, one heat() call per window
//   - table: Duty table override, nil or empty for the default
func NewExecuter(rest *Rest, heater actuator.Actuator, temps TemperatureReader, interval time.Duration, table map[int]int) *Executer {
	if len(table) == 0 {
		table = defaultDutyTable
	}

	steps := make([]dutyStep, 0, len(table))
	for delta, percent := range table {
		steps = append(steps, dutyStep{delta: delta, percent: percent})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].delta > steps[j].delta })

	return &Executer{
		rest:     rest,
		heater:   heater,
		temps:    temps,
		interval: interval,
		table:    steps,
	}
}

// Subscribe registers a lifecycle listener. Listeners are notified
// when the rest leaves the control loop (StateWaitingComplete or
// StateCompleted) and again when a waiting rest is completed. The
// listener set is cleared once the rest has completed.
func (e *Executer) Subscribe(fn func(RestState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Run executes the control loop until the rest completes or the
// context is cancelled. Cancellation is cooperative: it is observed at
// each loop iteration and during both duty-cycle sleep phases.
//
// The heater is switched off on every exit path.
//
// Returns:
//   - error: Context error on cancellation, heater switching errors
//     (fatal to the run), or a rest state invariant violation
func (e *Executer) Run(ctx context.Context) error {
	defer e.heater.Off()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.step(); err != nil {
			return err
		}

		state := e.rest.State()
		if state == StateCompleted || state == StateWaitingComplete {
			break
		}

		if err := e.heat(ctx); err != nil {
			return err
		}
	}

	state := e.rest.State()
	e.notify(state)

	// A waiting rest keeps holding temperature until a button press
	// forces it to completed, then notifies once more.
	if state == StateWaitingComplete {
		for e.rest.State() == StateWaitingComplete {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.heat(ctx); err != nil {
				return err
			}
		}
		e.notify(e.rest.State())
	}

	e.clearListeners()
	return nil
}

// step applies at most one lifecycle transition for this interval.
func (e *Executer) step() error {
	switch e.rest.State() {
	case StateInactive:
		return e.transition(StateHeating)

	case StateHeating:
		if e.temps.Temperature() >= e.rest.Temperature()-tolerance {
			return e.transition(StateActive)
		}

	case StateActive:
		if time.Since(e.rest.ActivatedAt()) >= e.rest.Duration() {
			if e.rest.ContinuesAutomatically() {
				return e.transition(StateCompleted)
			}
			return e.transition(StateWaitingComplete)
		}
	}
	return nil
}

// transition advances the rest and fires the transition hook.
func (e *Executer) transition(state RestState) error {
	if err := e.rest.SetState(state); err != nil {
		return err
	}
	if e.onTransition != nil {
		e.onTransition(state)
	}
	return nil
}

// heat runs one duty cycle: heater off for the remainder of the
// interval, then on for the chosen percentage. When the temperature is
// at or above target no table entry applies and the heater stays off
// for the whole interval.
func (e *Executer) heat(ctx context.Context) error {
	percent := e.dutyPercent(e.temps.Temperature())
	if e.onDuty != nil {
		e.onDuty(percent)
	}

	off := e.interval * time.Duration(100-percent) / 100

	if err := e.heater.Off(); err != nil {
		return fmt.Errorf("heater off: %w", err)
	}
	if !sleepCtx(ctx, off) {
		return ctx.Err()
	}

	on := e.interval - off
	if on <= 0 {
		return nil
	}

	if err := e.heater.On(); err != nil {
		return fmt.Errorf("heater on: %w", err)
	}
	if !sleepCtx(ctx, on) {
		return ctx.Err()
	}
	return nil
}

// dutyPercent picks the duty percentage for the current shortfall.
// The table is scanned in descending delta order and the first entry
// whose delta is strictly below the shortfall wins.
func (e *Executer) dutyPercent(current float64) int {
	delta := int((e.rest.Temperature() - current) * 10)
	for _, step := range e.table {
		if step.delta < delta {
			return step.percent
		}
	}
	return 0
}

// notify dispatches a lifecycle state to a snapshot of the listeners.
func (e *Executer) notify(state RestState) {
	e.mu.Lock()
	listeners := make([]func(RestState), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// clearListeners drops all lifecycle listeners after completion.
func (e *Executer) clearListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
}

// sleepCtx sleeps for d or until the context is cancelled. It reports
// whether the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
