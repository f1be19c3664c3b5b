package actuator

// Actuator switches the heating element.
//
// Failures are not expected to be recoverable mid-cycle: a heater that
// cannot be switched aborts the running rest rather than retrying.
type Actuator interface {
	// On energises the heater.
	On() error

	// Off de-energises the heater.
	Off() error
}
