package mashing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodrick/brewcontrol/internal/actuator"
)

// stubTemps is a settable latest-reading source.
type stubTemps struct {
	mu sync.Mutex
	v  float64
}

func (s *stubTemps) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

func (s *stubTemps) Set(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
}

func waitState(t *testing.T, ch <-chan RestState, want RestState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func TestDutyPercent_DefaultTable(t *testing.T) {
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, actuator.NewFake(), &stubTemps{}, time.Second, nil)

	tests := []struct {
		current float64
		want    int
	}{
		{63.0, 100},  // 2.0 below target, beyond the table
		{63.75, 100}, // 1.25 below
		{63.9, 80},   // 1.1 below
		{64.0, 75},   // 1.0 below
		{64.5, 50},   // 0.5 below
		{64.75, 10},  // 0.25 below
		{65.0, 0},    // at target
		{66.0, 0},    // above target
	}

	for _, tt := range tests {
		if got := exec.dutyPercent(tt.current); got != tt.want {
			t.Errorf("dutyPercent(%.2f) = %d, want %d", tt.current, got, tt.want)
		}
	}
}

func TestDutyPercent_NonIncreasing(t *testing.T) {
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, actuator.NewFake(), &stubTemps{}, time.Second, nil)

	prev := 101
	for current := 60.0; current <= 70.0; current += 0.1 {
		got := exec.dutyPercent(current)
		if got > prev {
			t.Fatalf("dutyPercent(%.2f) = %d rose above %d for a smaller shortfall", current, got, prev)
		}
		prev = got
	}
}

func TestDutyPercent_CustomTable(t *testing.T) {
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, actuator.NewFake(), &stubTemps{}, time.Second, map[int]int{20: 100, 0: 0})

	if got := exec.dutyPercent(62.0); got != 100 {
		t.Errorf("dutyPercent(62.0) = %d, want 100", got)
	}
	if got := exec.dutyPercent(64.0); got != 0 {
		t.Errorf("dutyPercent(64.0) = %d, want 0", got)
	}
}

func TestHeat_SwitchPattern(t *testing.T) {
	heater := actuator.NewFake()
	temps := &stubTemps{v: 60.0} // far below, full duty
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, heater, temps, 5*time.Millisecond, nil)

	if err := exec.heat(context.Background()); err != nil {
		t.Fatalf("heat() error = %v", err)
	}

	// Full duty: off phase is zero length, then on for the interval.
	switches := heater.Switches()
	if len(switches) != 2 || switches[0] != false || switches[1] != true {
		t.Errorf("Switches() = %v, want [off on]", switches)
	}
}

func TestHeat_AtTargetStaysOff(t *testing.T) {
	heater := actuator.NewFake()
	temps := &stubTemps{v: 65.0}
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, heater, temps, 5*time.Millisecond, nil)

	if err := exec.heat(context.Background()); err != nil {
		t.Fatalf("heat() error = %v", err)
	}

	switches := heater.Switches()
	if len(switches) != 1 || switches[0] != false {
		t.Errorf("Switches() = %v, want [off]", switches)
	}
}

// TestRun_ManualRest walks a rest through its whole lifecycle: heat up,
// hold for the duration, wait for confirmation, complete.
func TestRun_ManualRest(t *testing.T) {
	heater := actuator.NewFake()
	temps := &stubTemps{v: 64.0}
	rest := NewRest("maltose", 65.0, 40*time.Millisecond, false)
	exec := NewExecuter(rest, heater, temps, 5*time.Millisecond, nil)

	transitions := make(chan RestState, 16)
	exec.onTransition = func(s RestState) { transitions <- s }

	lifecycle := make(chan RestState, 16)
	exec.Subscribe(func(s RestState) { lifecycle <- s })

	done := make(chan error, 1)
	go func() { done <- exec.Run(context.Background()) }()

	waitState(t, transitions, StateHeating)

	// 64.0 is more than the 0.3 tolerance below target, so the rest
	// must still be heating until the reading rises.
	if rest.State() != StateHeating {
		t.Errorf("State() = %s, want %s", rest.State(), StateHeating)
	}

	temps.Set(65.1)
	waitState(t, transitions, StateActive)
	waitState(t, transitions, StateWaitingComplete)
	waitState(t, lifecycle, StateWaitingComplete)

	if err := rest.SetState(StateCompleted); err != nil {
		t.Fatalf("SetState(completed) error = %v", err)
	}
	waitState(t, lifecycle, StateCompleted)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after completion")
	}

	if heater.IsOn() {
		t.Error("heater left on after Run()")
	}
}

// TestRun_AutoContinue checks a zero-duration auto rest completes
// without ever entering waiting_complete.
func TestRun_AutoContinue(t *testing.T) {
	heater := actuator.NewFake()
	temps := &stubTemps{v: 65.0}
	rest := NewRest("mash-in", 65.0, 0, true)
	exec := NewExecuter(rest, heater, temps, 5*time.Millisecond, nil)

	var (
		mu        sync.Mutex
		lifecycle []RestState
	)
	exec.Subscribe(func(s RestState) {
		mu.Lock()
		lifecycle = append(lifecycle, s)
		mu.Unlock()
	})

	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lifecycle) != 1 || lifecycle[0] != StateCompleted {
		t.Errorf("lifecycle notifications = %v, want [completed]", lifecycle)
	}
}

func TestRun_CancelStopsLoop(t *testing.T) {
	heater := actuator.NewFake()
	temps := &stubTemps{v: 20.0} // never reaches target
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, heater, temps, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- exec.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not observe cancellation")
	}

	if heater.IsOn() {
		t.Error("heater left on after cancellation")
	}
}

func TestRun_HeaterFailureIsFatal(t *testing.T) {
	heater := actuator.NewFake()
	heater.FailOn = errors.New("relay stuck")
	temps := &stubTemps{v: 20.0} // full duty forces an On call
	rest := NewRest("test", 65.0, time.Minute, false)
	exec := NewExecuter(rest, heater, temps, 5*time.Millisecond, nil)

	err := exec.Run(context.Background())
	if err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want heater failure", err)
	}
}
