package actuator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO drives a heater relay on a GPIO output line.
//
// ActiveLow supports relay boards that energise on a low level. The
// line is requested with the heater off and is switched off again on
// Close, so a controller crash or shutdown never leaves the element
// powered.
type GPIO struct {
	line      *gpiocdev.Line
	activeLow bool
}

// NewGPIO requests the given line as an output with the heater off.
//
// Parameters:
//   - chip: GPIO character device name (e.g. "gpiochip0")
//   - pin: line offset of the relay
//   - activeLow: true if the relay energises on logic low
//
// Returns:
//   - *GPIO: Actuator ready for use, heater off
//   - error: If the line cannot be requested
func NewGPIO(chip string, pin int, activeLow bool) (*GPIO, error) {
	a := &GPIO{activeLow: activeLow}

	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsOutput(a.level(false)),
	)
	if err != nil {
		return nil, fmt.Errorf("requesting heater line %s:%d: %w", chip, pin, err)
	}

	a.line = line
	return a, nil
}

// On energises the heater relay.
func (a *GPIO) On() error {
	if err := a.line.SetValue(a.level(true)); err != nil {
		return fmt.Errorf("switching heater on: %w", err)
	}
	return nil
}

// Off de-energises the heater relay.
func (a *GPIO) Off() error {
	if err := a.line.SetValue(a.level(false)); err != nil {
		return fmt.Errorf("switching heater off: %w", err)
	}
	return nil
}

// Close switches the heater off and releases the line.
func (a *GPIO) Close() error {
	if a.line == nil {
		return nil
	}
	if err := a.line.SetValue(a.level(false)); err != nil {
		a.line.Close()
		return fmt.Errorf("switching heater off on close: %w", err)
	}
	if err := a.line.Close(); err != nil {
		return fmt.Errorf("closing heater line: %w", err)
	}
	return nil
}

// level maps the logical heater state to the line level.
func (a *GPIO) level(on bool) int {
	if on != a.activeLow {
		return 1
	}
	return 0
}
