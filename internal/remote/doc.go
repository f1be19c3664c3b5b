// Package remote exposes the mashing process over MQTT.
//
// Telemetry goes out under brewcontrol/mashing: retained per-rest
// state, per-reading temperature, and retained session events.
// Commands come in under brewcontrol/command: start, continue and
// terminate map directly onto the orchestrator's control surface.
package remote
