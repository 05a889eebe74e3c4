package protocol

import (
	"testing"
	"time"
)

func TestParseClimatePayload(t *testing.T) {
	data := []byte(`{"temperature":28.5,"humidity":61.2,"timestamp":"2026-08-25T10:00:00Z"}`)

	parsed, err := ParseClimatePayload(data)
	if err != nil {
		t.Fatalf("ParseClimatePayload failed: %v", err)
	}

	if parsed.Primary != 28.5 {
		t.Errorf("Expected primary 28.5, got %v", parsed.Primary)
	}
	if parsed.Secondary != 61.2 {
		t.Errorf("Expected secondary 61.2, got %v", parsed.Secondary)
	}
	expected := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if !parsed.Timestamp.Equal(expected) {
		t.Errorf("Expected timestamp %v, got %v", expected, parsed.Timestamp)
	}
}

func TestParseSoilPayload(t *testing.T) {
	data := []byte(`{"moisture":35.0,"soil_temperature":18.4,"timestamp":"2026-08-25T10:00:00Z"}`)

	parsed, err := ParseSoilPayload(data)
	if err != nil {
		t.Fatalf("ParseSoilPayload failed: %v", err)
	}

	if parsed.Primary != 35.0 {
		t.Errorf("Expected primary 35, got %v", parsed.Primary)
	}
	if parsed.Secondary != 18.4 {
		t.Errorf("Expected secondary 18.4, got %v", parsed.Secondary)
	}
}

func TestParsePayload_MissingTimestamp(t *testing.T) {
	if _, err := ParseSoilPayload([]byte(`{"moisture":35.0,"soil_temperature":18.4}`)); err == nil {
		t.Error("Expected error for missing timestamp")
	}
}

func TestParsePayload_BadTimestamp(t *testing.T) {
	if _, err := ParseClimatePayload([]byte(`{"temperature":1,"humidity":2,"timestamp":"yesterday"}`)); err == nil {
		t.Error("Expected error for non-RFC3339 timestamp")
	}
}

func TestParsePayload_InvalidJSON(t *testing.T) {
	if _, err := ParseClimatePayload([]byte(`{`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestDecisionRecordRoundTrip(t *testing.T) {
	record := &DecisionRecord{
		RecordID:        "r-1",
		SourceID:        "soil_sensor_1",
		Location:        "Field A",
		Timestamp:       time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		PrimaryMetric:   35.0,
		SecondaryMetric: 18.4,
		AmbientTemp:     28.0,
		AmbientHumidity: 65.0,
		WindowAggregate: 4.2,
		ActionNeeded:    true,
		Confidence:      0.82,
	}

	data, err := EncodeDecisionRecord(record)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeDecisionRecord(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.RecordID != record.RecordID || decoded.Confidence != record.Confidence {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
	if !decoded.ActionNeeded {
		t.Error("Expected action_needed to survive the round trip")
	}
}
