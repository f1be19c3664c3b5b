// Package actuator provides heater switching for the mashing process.
//
// GPIO drives a relay through the Linux GPIO character device; Fake
// records switches for tests and bench runs and identifies itself as
// simulated, which makes the rest control loop run on a slower
// interval.
package actuator
