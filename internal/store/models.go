package store

import (
	"time"
)

// SensorReading is one row in the append-only readings table. Every
// reading is stored exactly once; AlertSent is flipped after a decision
// is acted upon, nothing else is ever updated.
type SensorReading struct {
	ID              int64
	SourceID        string
	PrimaryMetric   float64
	SecondaryMetric float64
	Timestamp       time.Time
	AlertSent       bool
	ReceivedAt      time.Time
}

// DecisionLog is one audited evaluation, written by the audit writer
// service from the decision topic.
type DecisionLog struct {
	ID              int64
	RecordID        string
	SourceID        string
	Location        string
	Timestamp       time.Time
	PrimaryMetric   float64
	SecondaryMetric float64
	AmbientTemp     float64
	AmbientHumidity float64
	WindowAggregate float64
	ActionNeeded    bool
	Confidence      float64
	CreatedAt       time.Time
}

// DailySummary holds the per-source min/max rollup for one day.
type DailySummary struct {
	ID           int64
	SourceID     string
	Date         time.Time
	MinPrimary   *float64
	MaxPrimary   *float64
	MinSecondary *float64
	MaxSecondary *float64
	SampleCount  int
	CreatedAt    time.Time
}
