// Package sensor provides temperature acquisition for the mashing
// process.
//
// The Sensor interface abstracts the probe; DS18B20 reads a 1-wire
// probe through the kernel's w1_therm sysfs file, and Fake returns
// scripted readings for tests and bench runs.
//
// A Poller wraps any Sensor with background sampling: it caches the
// latest value for non-blocking access by the control loop and fans
// new readings out to listeners (temperature series logging, MQTT
// telemetry).
package sensor
