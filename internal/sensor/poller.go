package sensor

import (
	"context"
	"sync"
	"time"
)

// Logger is the logging interface the poller needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Poller samples a Sensor in the background at a fixed interval,
// caches the latest reading for non-blocking access, and fans each new
// reading out to registered listeners.
//
// Listeners are invoked synchronously on the poller goroutine, so they
// must be quick; the orchestrator's listener only updates a cached
// value and hands the sample to the batched series logger.
//
// Thread Safety:
//   - Temperature and Subscribe are safe for concurrent use.
type Poller struct {
	sensor   Sensor
	interval time.Duration
	logger   Logger

	mu     sync.RWMutex
	latest float64
	subs   []func(float64)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller for the given sensor. Start must be called
// before Temperature returns live values.
func NewPoller(s Sensor, interval time.Duration, logger Logger) *Poller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		sensor:   s,
		interval: interval,
		logger:   logger,
	}
}

// Subscribe registers a listener invoked with every new reading.
func (p *Poller) Subscribe(fn func(float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Temperature returns the most recent reading without blocking.
// Before the first successful sample it returns zero.
func (p *Poller) Temperature() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Start launches the background sampling goroutine. It samples once
// immediately, then on every interval tick until Stop is called or the
// context is cancelled.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sample()
			}
		}
	}()
}

// Stop cancels the sampling goroutine and waits for it to exit.
// Stop is a no-op if the poller was never started.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// sample reads the sensor once and distributes the result.
// Read failures keep the previous cached value.
func (p *Poller) sample() {
	value, err := p.sensor.Read()
	if err != nil {
		p.logger.Warn("temperature read failed", "error", err)
		return
	}

	p.mu.Lock()
	p.latest = value
	subs := make([]func(float64), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}
