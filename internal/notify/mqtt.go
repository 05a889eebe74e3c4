package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ranjitk/sensor-monitor/internal/protocol"
)

// MQTTNotifier publishes alerts to an MQTT topic as JSON, for downstream
// consumers (dashboards, cloud functions relaying SMS/email).
type MQTTNotifier struct {
	client      mqtt.Client
	topic       string
	publishWait time.Duration
}

// NewMQTTNotifier creates a notifier publishing to topic.
func NewMQTTNotifier(client mqtt.Client, topic string, publishWait time.Duration) *MQTTNotifier {
	return &MQTTNotifier{
		client:      client,
		topic:       topic,
		publishWait: publishWait,
	}
}

// Notify publishes the alert. A publish that cannot be confirmed within
// the configured wait counts as failed.
func (n *MQTTNotifier) Notify(ctx context.Context, alert *Alert) (*DeliveryResult, error) {
	msg := &protocol.AlertMessage{
		Alert:     alert.Title,
		Message:   alert.Body,
		Timestamp: alert.Timestamp.Format(time.RFC3339),
		Values:    alert.Values,
	}

	payload, err := protocol.EncodeAlertMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode alert: %v", ErrDeliveryFailed, err)
	}

	token := n.client.Publish(n.topic, 1, false, payload)
	if !token.WaitTimeout(n.publishWait) {
		return nil, fmt.Errorf("%w: publish to %s timed out", ErrDeliveryFailed, n.topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: publish to %s: %v", ErrDeliveryFailed, n.topic, err)
	}

	return &DeliveryResult{
		Delivered: true,
		Channel:   "mqtt",
		Detail:    n.topic,
		At:        time.Now(),
	}, nil
}
