package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ClimatePayload is the wire format for temperature/humidity sensors.
type ClimatePayload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// SoilPayload is the wire format for soil moisture sensors.
type SoilPayload struct {
	Moisture        float64 `json:"moisture"`
	SoilTemperature float64 `json:"soil_temperature"`
	Timestamp       string  `json:"timestamp"`
}

// ParsedMeasurement is a payload with its timestamp parsed. Primary and
// Secondary follow the pipeline convention: temperature/humidity for
// climate sensors, moisture/soil temperature for soil sensors.
type ParsedMeasurement struct {
	Timestamp time.Time
	Primary   float64
	Secondary float64
}

// ParseClimatePayload decodes and validates a climate sensor message.
func ParseClimatePayload(data []byte) (*ParsedMeasurement, error) {
	var payload ClimatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	ts, err := parseTimestamp(payload.Timestamp)
	if err != nil {
		return nil, err
	}

	return &ParsedMeasurement{
		Timestamp: ts,
		Primary:   payload.Temperature,
		Secondary: payload.Humidity,
	}, nil
}

// ParseSoilPayload decodes and validates a soil sensor message.
func ParseSoilPayload(data []byte) (*ParsedMeasurement, error) {
	var payload SoilPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	ts, err := parseTimestamp(payload.Timestamp)
	if err != nil {
		return nil, err
	}

	return &ParsedMeasurement{
		Timestamp: ts,
		Primary:   payload.Moisture,
		Secondary: payload.SoilTemperature,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is required")
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format (must be RFC3339): %w", err)
	}
	return ts, nil
}

// AlertMessage is published to the alert topic when a decision requires
// action.
type AlertMessage struct {
	Alert     string             `json:"alert"`
	Message   string             `json:"message"`
	Timestamp string             `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// EncodeAlertMessage encodes an AlertMessage to JSON.
func EncodeAlertMessage(msg *AlertMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeAlertMessage decodes JSON to AlertMessage.
func DecodeAlertMessage(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
