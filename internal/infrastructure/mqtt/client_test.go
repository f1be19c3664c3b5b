package mqtt

import (
	"errors"
	"strings"
	"testing"

	"github.com/goodrick/brewcontrol/internal/infrastructure/config"
)

func testClient() *Client {
	return &Client{
		cfg:           config.MQTTConfig{QoS: 1},
		subscriptions: make(map[string]subscription),
	}
}

func TestPublish_Validation(t *testing.T) {
	c := testClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   "brewcontrol/mashing/temperature",
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "brewcontrol/mashing/temperature",
			payload: make([]byte, maxPayloadSize+1),
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   "brewcontrol/mashing/temperature",
			payload: []byte(`{"value":64.2}`),
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := testClient()

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() with empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("t", 3, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() with qos 3 error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() with nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("t", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() while disconnected error = %v, want ErrNotConnected", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after failed subscribes, want 0", c.SubscriptionCount())
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     8883,
			TLS:      true,
			ClientID: "brewcontrol-test",
		},
		Auth: config.MQTTAuthConfig{Username: "brewer", Password: "secret"},
		QoS:  1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker URL, got %d", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "ssl://broker.local:8883" {
		t.Errorf("broker URL = %q, want ssl://broker.local:8883", got)
	}
	if opts.ClientID != "brewcontrol-test" {
		t.Errorf("ClientID = %q, want brewcontrol-test", opts.ClientID)
	}
	if opts.Username != "brewer" {
		t.Errorf("Username = %q, want brewer", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("brewcontrol")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload missing status field: %s", online)
	}

	offline := buildOfflinePayload("brewcontrol")
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload missing reason field: %s", offline)
	}
}
