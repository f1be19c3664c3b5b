package mashing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goodrick/brewcontrol/internal/actuator"
	"github.com/goodrick/brewcontrol/internal/button"
	"github.com/goodrick/brewcontrol/internal/infrastructure/config"
	"github.com/goodrick/brewcontrol/internal/infrastructure/logging"
)

const (
	defaultControlInterval    = time.Second
	defaultSimulationInterval = 5 * time.Second
	defaultCooldown           = 2 * time.Second
	defaultHysteresis         = -0.01
)

// TemperatureSource is the polling sensor contract the orchestrator
// binds at Init. It caches the latest reading for non-blocking access
// and fans new readings out to listeners.
type TemperatureSource interface {
	Start(ctx context.Context)
	Stop()
	Temperature() float64
	Subscribe(fn func(float64))
}

// SeriesLogger receives run telemetry for time-series storage. It is
// reset at the start of each run. All failures past Reset are handled
// by the implementation; a run never blocks on telemetry.
type SeriesLogger interface {
	Reset() error
	LogTemperature(value float64)
	LogDutyCycle(rest string, percent int)
	LogRestState(rest string, state string)
}

// RunRecorder persists session history.
type RunRecorder interface {
	StartSession(ctx context.Context, id, name string) error
	EndSession(ctx context.Context, id, outcome string) error
	RecordRestEvent(ctx context.Context, sessionID, rest, state string, temperature float64) error
}

// Mashing coordinates a chain of rests: it starts the first executer
// on a start signal, chains the next executer from each completion
// callback, arms one-shot button listeners for manual continuation,
// and resets the chain when the run ends or is terminated.
//
// At most one rest is in heating, active or waiting_complete at a
// time, because the next executer is only spawned from within the
// previous one's completion callback.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
type Mashing struct {
	cfg    config.MashingConfig
	logger *logging.Logger

	series   SeriesLogger
	recorder RunRecorder

	wg sync.WaitGroup

	mu          sync.Mutex
	name        string
	hysteresis  float64
	first       *Rest
	ready       bool
	active      bool
	sessionID   string
	baseCtx     context.Context
	cancel      context.CancelFunc
	source      TemperatureSource
	heater      actuator.Actuator
	buttons     []button.Button
	virtual     *button.Virtual
	startSubs   []*button.Subscription
	waitSubs    []*button.Subscription
	stateSubs   []func(*Rest, RestState)
	tempSubs    []func(float64)
	sessionSubs []func(id, event string)
}

// New creates an orchestrator with no rests and no bound hardware.
// Init must be called before Start.
func New(cfg config.MashingConfig, logger *logging.Logger) *Mashing {
	if logger == nil {
		logger = logging.Default()
	}

	hysteresis := cfg.Hysteresis
	if hysteresis == 0 {
		hysteresis = defaultHysteresis
	}

	return &Mashing{
		cfg:        cfg,
		logger:     logger,
		hysteresis: hysteresis,
		virtual:    button.NewVirtual(),
	}
}

// SetSeriesLogger binds the time-series telemetry sink. Optional.
func (m *Mashing) SetSeriesLogger(s SeriesLogger) { m.series = s }

// SetRecorder binds the session history store. Optional.
func (m *Mashing) SetRecorder(r RunRecorder) { m.recorder = r }

// AddRest appends a rest to the tail of the chain. The first call
// sets the head.
func (m *Mashing) AddRest(rest *Rest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.first == nil {
		m.first = rest
		return
	}

	tail := m.first
	for tail.Next() != nil {
		tail = tail.Next()
	}
	tail.setNext(rest)
}

// Init binds the temperature source, heater and physical buttons,
// starts background temperature sampling, and arms a one-shot start
// listener on each button. It must be called once before Start.
func (m *Mashing) Init(ctx context.Context, source TemperatureSource, heater actuator.Actuator, buttons ...button.Button) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.source = source
	m.heater = heater
	m.buttons = buttons
	m.ready = true
	m.mu.Unlock()

	source.Subscribe(m.onTemperature)
	source.Start(ctx)

	m.armStart()
}

// Start begins executing the rest chain from its head.
//
// Returns:
//   - error: ErrNotReady if Init has not bound collaborators or no
//     rests are configured, ErrAlreadyActive if a run is in progress
func (m *Mashing) Start() error {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return ErrNotReady
	}
	if m.first == nil {
		m.mu.Unlock()
		return ErrNotReady
	}
	if m.active {
		m.mu.Unlock()
		return ErrAlreadyActive
	}

	m.active = true
	m.sessionID = uuid.NewString()
	runCtx, cancel := context.WithCancel(m.baseCtx)
	m.cancel = cancel

	first := m.first
	sessionID := m.sessionID
	name := m.name
	m.mu.Unlock()

	// Telemetry failures degrade the run, they never block it.
	if m.series != nil {
		if err := m.series.Reset(); err != nil {
			m.logger.Warn("series logger reset failed, run continues without fresh telemetry", "error", err)
		}
	}
	if m.recorder != nil {
		if err := m.recorder.StartSession(context.Background(), sessionID, name); err != nil {
			m.logger.Warn("recording session start failed", "error", err)
		}
	}

	m.logger.Info("mashing started", "session_id", sessionID, "first_rest", first.Name())
	m.notifySession(sessionID, "started")
	m.executeRest(runCtx, first)
	return nil
}

// ContinueRest confirms a waiting rest, with the same effect as a
// physical button press.
func (m *Mashing) ContinueRest() {
	m.virtual.Click()
}

// Terminate stops an active run: it cancels every running executer,
// waits for them to exit, and forces every rest in the chain back to
// inactive so a fresh start is possible. Terminating an inactive
// orchestrator is a no-op.
func (m *Mashing) Terminate() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	cancel := m.cancel
	m.cancel = nil
	sessionID := m.sessionID
	first := m.first
	waitSubs := m.waitSubs
	m.waitSubs = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, sub := range waitSubs {
		sub.Cancel()
	}
	m.wg.Wait()

	for r := first; r != nil; r = r.Next() {
		r.reset()
	}

	if m.recorder != nil {
		if err := m.recorder.EndSession(context.Background(), sessionID, "terminated"); err != nil {
			m.logger.Warn("recording session end failed", "error", err)
		}
	}
	m.logger.Info("mashing terminated", "session_id", sessionID)
	m.notifySession(sessionID, "terminated")
}

// Close shuts the orchestrator down: any active run is terminated and
// background temperature sampling stops.
func (m *Mashing) Close() {
	m.Terminate()

	m.mu.Lock()
	source := m.source
	m.mu.Unlock()

	if source != nil {
		source.Stop()
	}
}

// Name returns the display name of the mash.
func (m *Mashing) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// SetName sets the display name of the mash.
func (m *Mashing) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// Hysteresis returns the configured hysteresis. It is exposed for
// external control integrations; the control loop does not use it.
func (m *Mashing) Hysteresis() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hysteresis
}

// SetHysteresis updates the hysteresis.
func (m *Mashing) SetHysteresis(h float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hysteresis = h
}

// FirstRest returns the head of the rest chain, or nil if empty.
func (m *Mashing) FirstRest() *Rest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.first
}

// CurrentTemperature returns the latest sensor reading, or zero before
// Init or the first sample.
func (m *Mashing) CurrentTemperature() float64 {
	m.mu.Lock()
	source := m.source
	m.mu.Unlock()

	if source == nil {
		return 0
	}
	return source.Temperature()
}

// Active reports whether a run is in progress.
func (m *Mashing) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SessionID returns the identifier of the current (or most recent)
// run, empty before the first start.
func (m *Mashing) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// SubscribeRestState registers a listener for every rest state change
// across all runs. Listeners are invoked synchronously from executer
// goroutines.
func (m *Mashing) SubscribeRestState(fn func(*Rest, RestState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateSubs = append(m.stateSubs, fn)
}

// SubscribeTemperature registers a listener for every new sensor
// reading.
func (m *Mashing) SubscribeTemperature(fn func(float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempSubs = append(m.tempSubs, fn)
}

// SubscribeSession registers a listener for run lifecycle events. The
// event is one of "started", "completed" or "terminated".
func (m *Mashing) SubscribeSession(fn func(id, event string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionSubs = append(m.sessionSubs, fn)
}

// notifySession fans one run lifecycle event out to subscribers.
func (m *Mashing) notifySession(id, event string) {
	m.mu.Lock()
	subs := make([]func(string, string), len(m.sessionSubs))
	copy(subs, m.sessionSubs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(id, event)
	}
}

// executeRest spawns an executer for the rest on its own goroutine and
// wires the chaining callback: a waiting rest arms the continue
// buttons, a completed rest starts the next one or finishes the run.
func (m *Mashing) executeRest(ctx context.Context, rest *Rest) {
	exec := NewExecuter(rest, m.heater, m.source, m.interval(), m.cfg.DutyTable)
	exec.onTransition = func(state RestState) {
		// waiting_complete is published only after the continue
		// buttons are armed, so a subscriber reacting to it can
		// confirm immediately.
		if state == StateWaitingComplete {
			return
		}
		m.recordState(rest, state)
	}
	exec.onDuty = func(percent int) {
		if m.series != nil {
			m.series.LogDutyCycle(rest.Name(), percent)
		}
	}

	exec.Subscribe(func(state RestState) {
		switch state {
		case StateWaitingComplete:
			m.armContinue(rest)
			m.recordState(rest, StateWaitingComplete)
		case StateCompleted:
			if next := rest.Next(); next != nil {
				m.executeRest(ctx, next)
			} else {
				m.finishRun()
			}
		}
	})

	m.wg.Add(1)
	go func() {
		err := exec.Run(ctx)
		m.wg.Done()
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("rest execution failed", "rest", rest.Name(), "error", err)
			m.Terminate()
		}
	}()
}

// armContinue registers a one-shot listener on every physical button
// plus the shared virtual button. The first press wins: it removes the
// listener from every button in the set and forces the waiting rest to
// completed, which releases the executer's hold loop.
func (m *Mashing) armContinue(rest *Rest) {
	m.mu.Lock()
	buttons := make([]button.Button, 0, len(m.buttons)+1)
	buttons = append(buttons, m.buttons...)
	buttons = append(buttons, m.virtual)
	m.mu.Unlock()

	var (
		once sync.Once
		subs []*button.Subscription
	)
	fire := func(s button.State) {
		if s != button.StateOn {
			return
		}
		once.Do(func() {
			m.mu.Lock()
			for _, sub := range subs {
				sub.Cancel()
			}
			m.waitSubs = nil
			m.mu.Unlock()

			if err := rest.SetState(StateCompleted); err != nil {
				m.logger.Error("completing waiting rest failed", "rest", rest.Name(), "error", err)
				return
			}
			m.recordState(rest, StateCompleted)
		})
	}

	// Holding the lock across Subscribe keeps a racing press from
	// firing before the full set is registered; dispatch happens on
	// the presser's goroutine, never inside Subscribe.
	m.mu.Lock()
	for _, b := range buttons {
		subs = append(subs, b.Subscribe(fire))
	}
	m.waitSubs = subs
	m.mu.Unlock()
}

// armStart registers a one-shot start listener on each physical
// button. Re-arming cancels any listeners left from a previous run.
func (m *Mashing) armStart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.startSubs {
		sub.Cancel()
	}
	m.startSubs = m.startSubs[:0]

	for _, b := range m.buttons {
		ss := &startSub{}
		ss.sub = b.Subscribe(m.startHandler(ss))
		m.startSubs = append(m.startSubs, ss.sub)
	}
}

type startSub struct {
	once sync.Once
	sub  *button.Subscription
}

// startHandler builds the one-shot start listener for one button: on
// first press it detaches itself and starts the run.
func (m *Mashing) startHandler(ss *startSub) button.Listener {
	return func(s button.State) {
		if s != button.StateOn {
			return
		}
		ss.once.Do(func() {
			m.mu.Lock()
			sub := ss.sub
			m.mu.Unlock()
			sub.Cancel()

			if err := m.Start(); err != nil {
				m.logger.Warn("start button press ignored", "error", err)
			}
		})
	}
}

// finishRun resets the chain after the last rest completed, pauses for
// the cooldown, and re-arms the start buttons.
func (m *Mashing) finishRun() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	cancel := m.cancel
	m.cancel = nil
	sessionID := m.sessionID
	first := m.first
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for r := first; r != nil; r = r.Next() {
		r.reset()
	}

	if m.recorder != nil {
		if err := m.recorder.EndSession(context.Background(), sessionID, "completed"); err != nil {
			m.logger.Warn("recording session end failed", "error", err)
		}
	}
	m.logger.Info("mashing finished", "session_id", sessionID)
	m.notifySession(sessionID, "completed")

	// Cooldown before re-arming, so the press that confirmed the last
	// rest cannot immediately start a new run.
	time.Sleep(m.cooldown())
	m.armStart()
}

// recordState fans one rest state change out to telemetry, history and
// subscribers.
func (m *Mashing) recordState(rest *Rest, state RestState) {
	m.mu.Lock()
	sessionID := m.sessionID
	subs := make([]func(*Rest, RestState), len(m.stateSubs))
	copy(subs, m.stateSubs)
	m.mu.Unlock()

	m.logger.Info("rest state changed", "rest", rest.Name(), "state", string(state))

	if m.series != nil {
		m.series.LogRestState(rest.Name(), string(state))
	}
	if m.recorder != nil {
		if err := m.recorder.RecordRestEvent(context.Background(), sessionID, rest.Name(), string(state), m.CurrentTemperature()); err != nil {
			m.logger.Warn("recording rest event failed", "rest", rest.Name(), "error", err)
		}
	}
	for _, fn := range subs {
		fn(rest, state)
	}
}

// onTemperature forwards each new sensor reading to the series logger
// and temperature subscribers.
func (m *Mashing) onTemperature(value float64) {
	m.mu.Lock()
	subs := make([]func(float64), len(m.tempSubs))
	copy(subs, m.tempSubs)
	m.mu.Unlock()

	if m.series != nil {
		m.series.LogTemperature(value)
	}
	for _, fn := range subs {
		fn(value)
	}
}

// interval selects the control interval, slowing down when the heater
// identifies itself as simulated.
func (m *Mashing) interval() time.Duration {
	if sim, ok := m.heater.(interface{ Simulated() bool }); ok && sim.Simulated() {
		if m.cfg.SimulationInterval > 0 {
			return m.cfg.SimulationInterval
		}
		return defaultSimulationInterval
	}
	if m.cfg.ControlInterval > 0 {
		return m.cfg.ControlInterval
	}
	return defaultControlInterval
}

func (m *Mashing) cooldown() time.Duration {
	if m.cfg.Cooldown > 0 {
		return m.cfg.Cooldown
	}
	return defaultCooldown
}
