package mashing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodrick/brewcontrol/internal/actuator"
	"github.com/goodrick/brewcontrol/internal/button"
	"github.com/goodrick/brewcontrol/internal/infrastructure/config"
	"github.com/goodrick/brewcontrol/internal/infrastructure/logging"
)

// testSource is a settable temperature source with listener fan-out.
type testSource struct {
	mu      sync.Mutex
	v       float64
	subs    []func(float64)
	started bool
}

func (s *testSource) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

func (s *testSource) Stop() {}

func (s *testSource) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

func (s *testSource) Subscribe(fn func(float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *testSource) Set(v float64) {
	s.mu.Lock()
	s.v = v
	subs := make([]func(float64), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

type restEvent struct {
	rest  string
	state RestState
}

func testConfig() config.MashingConfig {
	return config.MashingConfig{
		ControlInterval:    5 * time.Millisecond,
		SimulationInterval: 5 * time.Millisecond,
		Cooldown:           time.Millisecond,
	}
}

func newTestMashing(t *testing.T) (*Mashing, *testSource, chan restEvent) {
	t.Helper()

	m := New(testConfig(), logging.Default())
	src := &testSource{v: 60.0}

	events := make(chan restEvent, 64)
	m.SubscribeRestState(func(r *Rest, s RestState) {
		events <- restEvent{rest: r.Name(), state: s}
	})

	t.Cleanup(m.Close)
	return m, src, events
}

func waitEvent(t *testing.T, ch <-chan restEvent, rest string, state RestState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.rest == rest && e.state == state {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s -> %s", rest, state)
		}
	}
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStart_NotReadyBeforeInit(t *testing.T) {
	m := New(testConfig(), logging.Default())
	m.AddRest(NewRest("maltose", 63.0, time.Minute, false))

	if err := m.Start(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Start() error = %v, want ErrNotReady", err)
	}
}

func TestStart_NotReadyWithoutRests(t *testing.T) {
	m, src, _ := newTestMashing(t)
	m.Init(context.Background(), src, actuator.NewFake())

	if err := m.Start(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Start() error = %v, want ErrNotReady", err)
	}
}

func TestStart_AlreadyActive(t *testing.T) {
	m, src, _ := newTestMashing(t)
	src.Set(20.0) // never reaches target, run stays heating
	m.AddRest(NewRest("maltose", 63.0, time.Minute, false))
	m.Init(context.Background(), src, actuator.NewFake())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start(); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start() error = %v, want ErrAlreadyActive", err)
	}

	m.Terminate()
	waitUntil(t, func() bool { return !m.Active() }, "run still active after Terminate")

	// A fresh start is always permitted after termination.
	if err := m.Start(); err != nil {
		t.Errorf("Start() after Terminate error = %v", err)
	}
}

func TestStart_ConcurrentCallsAdmitOne(t *testing.T) {
	m, src, _ := newTestMashing(t)
	src.Set(20.0)
	m.AddRest(NewRest("maltose", 63.0, time.Minute, false))
	m.Init(context.Background(), src, actuator.NewFake())

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Start()
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
		} else if !errors.Is(err, ErrAlreadyActive) {
			t.Errorf("Start() error = %v, want ErrAlreadyActive", err)
		}
	}
	if started != 1 {
		t.Errorf("%d Start() calls succeeded, want exactly 1", started)
	}
}

// TestRun_AutoChain runs two zero-duration auto rests back to back and
// checks the second executer is spawned from the first's completion.
func TestRun_AutoChain(t *testing.T) {
	m, src, events := newTestMashing(t)
	first := NewRest("mash-in", 60.0, 0, true)
	second := NewRest("mash-out", 60.0, 0, true)
	m.AddRest(first)
	m.AddRest(second)
	m.Init(context.Background(), src, actuator.NewFake())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitEvent(t, events, "mash-in", StateHeating)
	waitEvent(t, events, "mash-in", StateActive)
	waitEvent(t, events, "mash-in", StateCompleted)
	waitEvent(t, events, "mash-out", StateHeating)
	waitEvent(t, events, "mash-out", StateActive)
	waitEvent(t, events, "mash-out", StateCompleted)

	waitUntil(t, func() bool { return !m.Active() }, "run still active after last rest")
	waitUntil(t, func() bool {
		return first.State() == StateInactive && second.State() == StateInactive
	}, "rests not reset after run")
}

// TestRun_ContinueRest confirms a waiting rest through the software
// continue trigger.
func TestRun_ContinueRest(t *testing.T) {
	m, src, events := newTestMashing(t)
	rest := NewRest("maltose", 60.0, 0, false)
	m.AddRest(rest)
	m.Init(context.Background(), src, actuator.NewFake())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitEvent(t, events, "maltose", StateWaitingComplete)
	m.ContinueRest()
	waitEvent(t, events, "maltose", StateCompleted)

	waitUntil(t, func() bool { return !m.Active() }, "run still active after confirmation")
	waitUntil(t, func() bool { return rest.State() == StateInactive }, "rest not reset after run")
}

// TestRun_ButtonContinuesWaitingRest confirms a waiting rest through a
// physical button press.
func TestRun_ButtonContinuesWaitingRest(t *testing.T) {
	m, src, events := newTestMashing(t)
	btn := button.NewVirtual()
	rest := NewRest("maltose", 60.0, 0, false)
	m.AddRest(rest)
	m.Init(context.Background(), src, actuator.NewFake(), btn)

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitEvent(t, events, "maltose", StateWaitingComplete)
	btn.Click()
	waitEvent(t, events, "maltose", StateCompleted)
	waitUntil(t, func() bool { return !m.Active() }, "run still active after button press")
}

// TestInit_ButtonStartsRun checks the one-shot start listener armed on
// each physical button.
func TestInit_ButtonStartsRun(t *testing.T) {
	m, src, events := newTestMashing(t)
	src.Set(20.0)
	btn := button.NewVirtual()
	m.AddRest(NewRest("maltose", 63.0, time.Minute, false))
	m.Init(context.Background(), src, actuator.NewFake(), btn)

	btn.Click()
	waitEvent(t, events, "maltose", StateHeating)

	if !m.Active() {
		t.Error("Active() = false after button start")
	}
	m.Terminate()
}

func TestTerminate_ResetsChain(t *testing.T) {
	m, src, events := newTestMashing(t)
	src.Set(20.0)
	first := NewRest("maltose", 63.0, time.Minute, false)
	second := NewRest("mash-out", 78.0, time.Minute, false)
	m.AddRest(first)
	m.AddRest(second)
	m.Init(context.Background(), src, actuator.NewFake())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitEvent(t, events, "maltose", StateHeating)

	m.Terminate()

	if first.State() != StateInactive || second.State() != StateInactive {
		t.Errorf("states after Terminate = %s, %s, want both inactive", first.State(), second.State())
	}
	if m.Active() {
		t.Error("Active() = true after Terminate")
	}
}

func TestTerminate_InactiveIsNoOp(t *testing.T) {
	m, src, _ := newTestMashing(t)
	m.AddRest(NewRest("maltose", 63.0, time.Minute, false))
	m.Init(context.Background(), src, actuator.NewFake())

	m.Terminate()
	m.Terminate()

	if m.Active() {
		t.Error("Active() = true after Terminate on inactive run")
	}
}

func TestAddRest_AppendsToTail(t *testing.T) {
	m := New(testConfig(), logging.Default())
	first := NewRest("a", 50.0, 0, true)
	second := NewRest("b", 60.0, 0, true)
	third := NewRest("c", 70.0, 0, true)
	m.AddRest(first)
	m.AddRest(second)
	m.AddRest(third)

	if m.FirstRest() != first {
		t.Fatal("FirstRest() is not the first added rest")
	}
	if first.Next() != second || second.Next() != third || third.Next() != nil {
		t.Error("chain order does not match insertion order")
	}
}

func TestAccessors(t *testing.T) {
	m := New(testConfig(), logging.Default())

	if got := m.Hysteresis(); got != defaultHysteresis {
		t.Errorf("Hysteresis() = %v, want %v", got, defaultHysteresis)
	}
	m.SetHysteresis(0.5)
	if got := m.Hysteresis(); got != 0.5 {
		t.Errorf("Hysteresis() = %v, want 0.5", got)
	}

	m.SetName("wheat ale")
	if got := m.Name(); got != "wheat ale" {
		t.Errorf("Name() = %q, want %q", got, "wheat ale")
	}

	if got := m.CurrentTemperature(); got != 0 {
		t.Errorf("CurrentTemperature() before Init = %v, want 0", got)
	}
}

// fakeSeries counts telemetry calls.
type fakeSeries struct {
	mu     sync.Mutex
	resets int
	temps  []float64
	states []restEvent
}

func (f *fakeSeries) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeSeries) LogTemperature(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temps = append(f.temps, v)
}

func (f *fakeSeries) LogDutyCycle(string, int) {}

func (f *fakeSeries) LogRestState(rest, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, restEvent{rest: rest, state: RestState(state)})
}

// fakeRecorder captures session history calls.
type fakeRecorder struct {
	mu       sync.Mutex
	started  []string
	outcomes map[string]string
	events   int
}

func (f *fakeRecorder) StartSession(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
	return nil
}

func (f *fakeRecorder) EndSession(_ context.Context, id, outcome string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = map[string]string{}
	}
	f.outcomes[id] = outcome
	return nil
}

func (f *fakeRecorder) RecordRestEvent(_ context.Context, _, _, _ string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events++
	return nil
}

func TestRun_RecordsTelemetryAndHistory(t *testing.T) {
	m, src, _ := newTestMashing(t)
	series := &fakeSeries{}
	recorder := &fakeRecorder{}
	m.SetSeriesLogger(series)
	m.SetRecorder(recorder)

	m.AddRest(NewRest("mash-in", 60.0, 0, true))
	m.Init(context.Background(), src, actuator.NewFake())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sessionID := m.SessionID()
	if sessionID == "" {
		t.Fatal("SessionID() empty after Start")
	}

	waitUntil(t, func() bool { return !m.Active() }, "run did not finish")

	src.Set(61.0)

	series.mu.Lock()
	resets, temps, states := series.resets, len(series.temps), len(series.states)
	series.mu.Unlock()
	if resets != 1 {
		t.Errorf("series resets = %d, want 1", resets)
	}
	if temps == 0 {
		t.Error("no temperatures logged")
	}
	if states == 0 {
		t.Error("no rest states logged")
	}

	waitUntil(t, func() bool {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		return recorder.outcomes[sessionID] == "completed"
	}, "session outcome not recorded")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.started) != 1 || recorder.started[0] != sessionID {
		t.Errorf("started sessions = %v, want [%s]", recorder.started, sessionID)
	}
	if recorder.events == 0 {
		t.Error("no rest events recorded")
	}
}
