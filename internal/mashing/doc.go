// Package mashing implements the rest execution engine of BrewControl.
//
// A mash is a chain of rests. Each rest holds the liquid at a target
// temperature for a target duration, then either continues
// automatically or waits for a button press. The Executer drives one
// rest at a time: a table-driven step controller switches the heater
// at a duty cycle derived from how far the liquid is below target.
//
// Mashing is the coordinator. It owns the rest chain, starts the first
// executer on a start signal (remote command or physical button),
// chains the next executer from each completion callback, and exposes
// the control surface consumed by the remote layer: Start,
// ContinueRest, Terminate, and the state and temperature feeds.
//
// Run telemetry goes to a SeriesLogger (InfluxDB in production) and
// session history to a RunRecorder (SQLite). Both are optional; the
// control loop never blocks on either.
package mashing
