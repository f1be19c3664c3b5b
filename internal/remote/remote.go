package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goodrick/brewcontrol/internal/infrastructure/logging"
	"github.com/goodrick/brewcontrol/internal/infrastructure/mqtt"
	"github.com/goodrick/brewcontrol/internal/mashing"
)

// Command names accepted under brewcontrol/command/.
const (
	CommandStart     = "start"
	CommandContinue  = "continue"
	CommandTerminate = "terminate"
)

// Broker is the MQTT surface the service needs. *mqtt.Client
// satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Controller is the mashing control surface the service drives.
// *mashing.Mashing satisfies it.
type Controller interface {
	Start() error
	ContinueRest()
	Terminate()
	CurrentTemperature() float64
	SessionID() string
	SubscribeRestState(fn func(*mashing.Rest, mashing.RestState))
	SubscribeTemperature(fn func(float64))
	SubscribeSession(fn func(id, event string))
}

// RestStatePayload is published on brewcontrol/mashing/state/<rest>,
// retained, on every rest lifecycle transition.
type RestStatePayload struct {
	Rest        string  `json:"rest"`
	State       string  `json:"state"`
	Target      float64 `json:"target"`
	Temperature float64 `json:"temperature"`
	SessionID   string  `json:"session_id"`
	Timestamp   string  `json:"timestamp"`
}

// TemperaturePayload is published on brewcontrol/mashing/temperature
// for every sensor reading.
type TemperaturePayload struct {
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// SessionPayload is published on brewcontrol/mashing/session, retained,
// when a run starts and when it ends.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

// Service bridges the mashing orchestrator and the MQTT broker: it
// publishes run telemetry and dispatches remote commands.
type Service struct {
	controller Controller
	broker     Broker
	logger     *logging.Logger
	topics     mqtt.Topics
}

// New creates an unbound service. Start attaches it to the controller
// and broker.
func New(controller Controller, broker Broker, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		controller: controller,
		broker:     broker,
		logger:     logger,
	}
}

// Start subscribes to the command topics and hooks the controller's
// state, temperature and session feeds.
//
// Returns:
//   - error: If the command subscription fails
func (s *Service) Start() error {
	s.controller.SubscribeRestState(s.publishRestState)
	s.controller.SubscribeTemperature(s.publishTemperature)
	s.controller.SubscribeSession(s.publishSession)

	if err := s.broker.Subscribe(s.topics.AllCommands(), 1, s.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	return nil
}

// handleCommand dispatches one remote command. Unknown commands and
// rejected starts are logged, not errors: a stray retained message
// must not tear down the subscription.
func (s *Service) handleCommand(topic string, _ []byte) error {
	name := topic[strings.LastIndex(topic, "/")+1:]

	switch name {
	case CommandStart:
		if err := s.controller.Start(); err != nil {
			s.logger.Warn("remote start rejected", "error", err)
		}
	case CommandContinue:
		s.controller.ContinueRest()
	case CommandTerminate:
		s.controller.Terminate()
	default:
		s.logger.Warn("unknown remote command", "command", name)
	}
	return nil
}

// publishRestState publishes a retained state message for one rest, so
// late subscribers see the current position of the mash.
func (s *Service) publishRestState(rest *mashing.Rest, state mashing.RestState) {
	s.publish(s.topics.RestState(rest.Name()), RestStatePayload{
		Rest:        rest.Name(),
		State:       string(state),
		Target:      rest.Temperature(),
		Temperature: s.controller.CurrentTemperature(),
		SessionID:   s.controller.SessionID(),
		Timestamp:   timestamp(),
	}, true)
}

// publishTemperature publishes one sensor reading, unretained.
func (s *Service) publishTemperature(value float64) {
	s.publish(s.topics.Temperature(), TemperaturePayload{
		Value:     value,
		Timestamp: timestamp(),
	}, false)
}

// publishSession publishes a retained run lifecycle event.
func (s *Service) publishSession(id, event string) {
	s.publish(s.topics.Session(), SessionPayload{
		SessionID: id,
		Event:     event,
		Timestamp: timestamp(),
	}, true)
}

// publish marshals and sends one payload at QoS 1. Failures are
// logged; telemetry never interrupts a run.
func (s *Service) publish(topic string, payload any, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshalling payload failed", "topic", topic, "error", err)
		return
	}
	if err := s.broker.Publish(topic, data, 1, retained); err != nil {
		s.logger.Warn("publish failed", "topic", topic, "error", err)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
