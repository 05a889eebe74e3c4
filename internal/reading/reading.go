package reading

import (
	"context"
	"errors"
	"time"
)

// Reading is a single timestamped measurement from a sensor. Immutable
// once created.
type Reading struct {
	Timestamp time.Time
	Primary   float64 // temperature or moisture, depending on the source
	Secondary float64 // humidity or soil temperature
	SourceID  string
}

// ErrInvalid marks malformed or incomplete sensor data. The driver loop
// treats it as a skipped cycle, not a failure.
var ErrInvalid = errors.New("invalid reading")

// Source produces one measurement per invocation. Implementations backed
// by an external channel must honor the context deadline and never block
// indefinitely.
type Source interface {
	Next(ctx context.Context) (*Reading, error)
}

// SimulatedClimateSensor stands in for a real DHT-style sensor. The values
// sweep a fixed range over a ten second period so thresholds can be
// exercised without hardware.
type SimulatedClimateSensor struct {
	SourceID string
	now      func() time.Time
}

// NewSimulatedClimateSensor creates a simulated temperature/humidity sensor.
func NewSimulatedClimateSensor(sourceID string) *SimulatedClimateSensor {
	return &SimulatedClimateSensor{
		SourceID: sourceID,
		now:      time.Now,
	}
}

// Next returns the current simulated measurement.
func (s *SimulatedClimateSensor) Next(ctx context.Context) (*Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	phase := float64(now.Unix()%10) / 10.0

	return &Reading{
		Timestamp: now,
		Primary:   25.0 + 5.0*phase,  // °C
		Secondary: 45.0 + 40.0*phase, // %
		SourceID:  s.SourceID,
	}, nil
}
