package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/onnwee/ingame-bot/presence"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

// Publisher is the part of mqtt.Client the observer needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTObserver publishes every transition as a retained message, so late subscribers see the
// current state immediately.
type MQTTObserver struct {
	client Publisher
	topic  string
}

// DialMQTT connects to broker (tcp://host:1883) with auto-reconnect enabled.
func DialMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("mqtt connection lost", slog.Any("err", err), slog.String("component", "notify"))
		})
	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	slog.Info("connected to mqtt broker", slog.String("broker", broker), slog.String("component", "notify"))
	return client, nil
}

// NewMQTTObserver publishes to topic through client.
func NewMQTTObserver(client Publisher, topic string) *MQTTObserver {
	return &MQTTObserver{client: client, topic: topic}
}

func (m *MQTTObserver) Observe(ctx context.Context, t presence.Transition) error {
	data, err := NewEvent(t).marshal()
	if err != nil {
		return fmt.Errorf("marshal presence event: %w", err)
	}
	tok := m.client.Publish(m.topic, mqttQoS, true, data)
	wait := mqttPublishTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
		wait = time.Until(dl)
	}
	if !tok.WaitTimeout(wait) {
		return fmt.Errorf("mqtt publish %s: timed out", m.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects, allowing in-flight messages 250ms to drain.
func (m *MQTTObserver) Close() { m.client.Disconnect(250) }
