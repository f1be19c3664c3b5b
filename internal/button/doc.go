// Package button provides the on/off signal sources that drive manual
// interaction with the mashing process.
//
// A Button broadcasts every state set to its listeners, synchronously
// and in registration order. Two implementations exist:
//
//   - GPIO: a physical push button on a GPIO line (debounced edges)
//   - Virtual: a software button whose Click() synthesizes a press that
//     listeners cannot distinguish from hardware
//
// Listener registration returns a Subscription handle; Cancel is
// idempotent and safe to call during the listener's own invocation,
// which is what one-shot listeners do.
package button
