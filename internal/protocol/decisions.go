package protocol

import (
	"encoding/json"
	"time"
)

// DecisionRecord is the internal message format for the decision audit
// topic. One record is published per evaluation cycle, whether or not an
// alert was raised.
type DecisionRecord struct {
	RecordID        string    `json:"record_id"`
	SourceID        string    `json:"source_id"`
	Location        string    `json:"location"`
	Timestamp       time.Time `json:"timestamp"`
	PrimaryMetric   float64   `json:"primary_metric"`
	SecondaryMetric float64   `json:"secondary_metric"`
	AmbientTemp     float64   `json:"ambient_temperature"`
	AmbientHumidity float64   `json:"ambient_humidity"`
	WindowAggregate float64   `json:"window_aggregate"`
	ActionNeeded    bool      `json:"action_needed"`
	Confidence      float64   `json:"confidence"`
}

// EncodeDecisionRecord encodes a DecisionRecord to JSON.
func EncodeDecisionRecord(record *DecisionRecord) ([]byte, error) {
	return json.Marshal(record)
}

// DecodeDecisionRecord decodes JSON to DecisionRecord.
func DecodeDecisionRecord(data []byte) (*DecisionRecord, error) {
	var record DecisionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
