package mqtt

import "fmt"

// Topic prefixes for the BrewControl MQTT surface.
//
// The controller publishes run telemetry under brewcontrol/mashing and
// accepts commands under brewcontrol/command. System status (including
// the LWT) lives under brewcontrol/system.
const (
	// TopicPrefix is the base for all BrewControl topics.
	TopicPrefix = "brewcontrol"

	// TopicPrefixMashing is the base for mashing telemetry topics.
	TopicPrefixMashing = "brewcontrol/mashing"

	// TopicPrefixCommand is the base for remote command topics.
	TopicPrefixCommand = "brewcontrol/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "brewcontrol/system"
)

// Topics provides builders for BrewControl MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.RestState("maltose")
//	// Returns: "brewcontrol/mashing/state/maltose"
type Topics struct{}

// SystemStatus returns the topic for controller online/offline status.
//
// Example: brewcontrol/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// RestState returns the topic for a rest's lifecycle transitions.
//
// Example: brewcontrol/mashing/state/maltose
func (Topics) RestState(rest string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefixMashing, rest)
}

// AllRestStates returns the wildcard pattern matching every rest state topic.
//
// Example: brewcontrol/mashing/state/+
func (Topics) AllRestStates() string {
	return TopicPrefixMashing + "/state/+"
}

// Temperature returns the topic for mash temperature samples.
//
// Example: brewcontrol/mashing/temperature
func (Topics) Temperature() string {
	return TopicPrefixMashing + "/temperature"
}

// Session returns the topic for brew session start/end events.
//
// Example: brewcontrol/mashing/session
func (Topics) Session() string {
	return TopicPrefixMashing + "/session"
}

// Command returns the topic for a remote command.
//
// Example: brewcontrol/command/continue
func (Topics) Command(name string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixCommand, name)
}

// AllCommands returns the wildcard pattern matching every command topic.
//
// Example: brewcontrol/command/+
func (Topics) AllCommands() string {
	return TopicPrefixCommand + "/+"
}
