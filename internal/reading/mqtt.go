package reading

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ranjitk/sensor-monitor/internal/protocol"
)

// ParseFunc decodes a raw payload into a parsed measurement. See
// protocol.ParseClimatePayload and protocol.ParseSoilPayload.
type ParseFunc func(data []byte) (*protocol.ParsedMeasurement, error)

type delivery struct {
	reading *Reading
	err     error
}

// MQTTSource adapts an MQTT subscription to the Source contract. Messages
// arrive on paho's notification goroutine and are handed to the driver
// loop through a buffered channel; Next never blocks past its timeout.
type MQTTSource struct {
	client     mqtt.Client
	topic      string
	sourceID   string
	timeout    time.Duration
	deliveries chan delivery
}

// NewMQTTSource subscribes to topic and returns a source that yields one
// reading per inbound message.
func NewMQTTSource(client mqtt.Client, topic, sourceID string, parse ParseFunc, timeout time.Duration) (*MQTTSource, error) {
	s := &MQTTSource{
		client:     client,
		topic:      topic,
		sourceID:   sourceID,
		timeout:    timeout,
		deliveries: make(chan delivery, 16),
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		parsed, err := parse(msg.Payload())
		if err != nil {
			s.offer(delivery{err: fmt.Errorf("%w: %v", ErrInvalid, err)})
			return
		}
		s.offer(delivery{reading: &Reading{
			Timestamp: parsed.Timestamp,
			Primary:   parsed.Primary,
			Secondary: parsed.Secondary,
			SourceID:  sourceID,
		}})
	}

	token := client.Subscribe(topic, 1, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return s, nil
}

// offer drops the oldest pending delivery if the buffer is full, so a
// stalled consumer never blocks paho's notification goroutine.
func (s *MQTTSource) offer(d delivery) {
	for {
		select {
		case s.deliveries <- d:
			return
		default:
			select {
			case <-s.deliveries:
			default:
			}
		}
	}
}

// Next returns the next inbound reading. A malformed message surfaces as
// an error wrapping ErrInvalid; silence past the read timeout surfaces as
// context.DeadlineExceeded.
func (s *MQTTSource) Next(ctx context.Context) (*Reading, error) {
	waitCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case d := <-s.deliveries:
		return d.reading, d.err
	case <-waitCtx.Done():
		return nil, waitCtx.Err()
	}
}

// Close unsubscribes from the sensor topic.
func (s *MQTTSource) Close() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}
