package store

import (
	"context"
	"time"

	"github.com/ranjitk/sensor-monitor/internal/reading"
)

// ReadingSink adapts the database to the pipeline's persistence
// contract: one append per reading, alert flag settable afterwards.
type ReadingSink struct {
	db *DB
}

// NewReadingSink creates a sink writing to sensor_readings.
func NewReadingSink(db *DB) *ReadingSink {
	return &ReadingSink{db: db}
}

// Record appends the reading and returns its assigned identifier.
func (s *ReadingSink) Record(ctx context.Context, r *reading.Reading) (int64, error) {
	row := &SensorReading{
		SourceID:        r.SourceID,
		PrimaryMetric:   r.Primary,
		SecondaryMetric: r.Secondary,
		Timestamp:       r.Timestamp,
		ReceivedAt:      time.Now(),
	}

	if err := s.db.InsertReading(ctx, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// MarkAlertSent flags the stored reading after its alert went out.
func (s *ReadingSink) MarkAlertSent(ctx context.Context, id int64) error {
	return s.db.MarkAlertSent(ctx, id)
}
