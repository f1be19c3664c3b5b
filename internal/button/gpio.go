package button

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO watches a physical push button on a GPIO line.
//
// The line is requested with a pull-up, so the wiring is button-to-ground:
// a falling edge means pressed, a rising edge means released. Edge events
// are debounced in the kernel before they reach the handler.
type GPIO struct {
	notifier
	line *gpiocdev.Line
}

// NewGPIO requests the given line and starts delivering edge events as
// button notifications.
//
// Parameters:
//   - chip: GPIO character device name (e.g. "gpiochip0")
//   - pin: line offset of the button
//   - debounce: kernel debounce period for the contact
//
// Returns:
//   - *GPIO: Button delivering press/release notifications
//   - error: If the line cannot be requested
func NewGPIO(chip string, pin int, debounce time.Duration) (*GPIO, error) {
	b := &GPIO{notifier: newNotifier()}

	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(b.handleEdge),
	)
	if err != nil {
		return nil, fmt.Errorf("requesting button line %s:%d: %w", chip, pin, err)
	}

	b.line = line
	return b, nil
}

// handleEdge translates line events into button notifications.
func (b *GPIO) handleEdge(evt gpiocdev.LineEvent) {
	switch evt.Type {
	case gpiocdev.LineEventFallingEdge:
		b.set(StateOn)
	case gpiocdev.LineEventRisingEdge:
		b.set(StateOff)
	}
}

// Close releases the GPIO line. The button delivers no further
// notifications afterwards.
func (b *GPIO) Close() error {
	if b.line == nil {
		return nil
	}
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("closing button line: %w", err)
	}
	return nil
}
