package sensor

import (
	"errors"
	"sync"
)

// Fake is a test double that returns scripted temperature readings.
//
// Each call to Read consumes the next sample; when samples are
// exhausted the last one repeats, which models a mash that has settled
// at a temperature. Set overrides the stream with a fixed value.
type Fake struct {
	mu sync.Mutex

	// Samples contains scripted readings to return in order.
	Samples []float64

	// ReadError, if set, is returned by every Read.
	ReadError error

	index    int
	fixed    *float64
	readouts int
}

// NewFake creates a Fake returning the given samples in order.
func NewFake(samples ...float64) *Fake {
	return &Fake{Samples: samples}
}

// Read returns the next scripted sample.
func (f *Fake) Read() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return 0, f.ReadError
	}
	f.readouts++

	if f.fixed != nil {
		return *f.fixed, nil
	}

	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Quantity returns the measured physical quantity.
func (f *Fake) Quantity() string {
	return "°C"
}

// Set pins the sensor to a fixed value, overriding the sample stream.
func (f *Fake) Set(value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixed = &value
}

// Readouts returns how many times Read has been called.
func (f *Fake) Readouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readouts
}
