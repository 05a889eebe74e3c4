package decision

import (
	"testing"
	"time"

	"github.com/ranjitk/sensor-monitor/internal/reading"
)

func testReading(primary, secondary float64) reading.Reading {
	return reading.Reading{
		Timestamp: time.Unix(1700000000, 0),
		Primary:   primary,
		Secondary: secondary,
		SourceID:  "test-sensor",
	}
}

func TestThresholdEvaluator_PrimaryBreach(t *testing.T) {
	e := NewThresholdEvaluator(30.0, 80.0)

	dec := e.Evaluate(testReading(32.0, 50.0), 0, nil)
	if !dec.ActionNeeded {
		t.Error("Expected action for primary 32 > 30")
	}
	if dec.Confidence != 1.0 {
		t.Errorf("Expected confidence 1.0 when triggered, got %.2f", dec.Confidence)
	}
}

func TestThresholdEvaluator_SecondaryBreach(t *testing.T) {
	e := NewThresholdEvaluator(30.0, 80.0)

	dec := e.Evaluate(testReading(25.0, 85.0), 0, nil)
	if !dec.ActionNeeded {
		t.Error("Expected action for secondary 85 > 80")
	}
}

func TestThresholdEvaluator_NoBreach(t *testing.T) {
	e := NewThresholdEvaluator(30.0, 80.0)

	dec := e.Evaluate(testReading(25.0, 50.0), 0, nil)
	if dec.ActionNeeded {
		t.Error("Expected no action for 25/50 against 30/80")
	}
	if dec.Confidence != 0.0 {
		t.Errorf("Expected confidence 0.0 when not triggered, got %.2f", dec.Confidence)
	}
}

func TestThresholdEvaluator_BoundaryIsStrict(t *testing.T) {
	e := NewThresholdEvaluator(30.0, 80.0)

	// Values exactly at the limit must not trigger
	dec := e.Evaluate(testReading(30.0, 80.0), 0, nil)
	if dec.ActionNeeded {
		t.Error("Expected no action for values exactly at the thresholds")
	}
}

func TestThresholdEvaluator_CarriesBasis(t *testing.T) {
	e := NewThresholdEvaluator(30.0, 80.0)

	dec := e.Evaluate(testReading(32.0, 50.0), 12.5, nil)
	if dec.Basis.Primary != 32.0 {
		t.Errorf("Expected basis primary 32, got %.1f", dec.Basis.Primary)
	}
	if dec.Aggregate != 12.5 {
		t.Errorf("Expected aggregate 12.5, got %.1f", dec.Aggregate)
	}
}

// stubScorer returns a fixed probability and records the features it saw.
type stubScorer struct {
	probability float64
	seen        []float64
}

func (s *stubScorer) Score(features []float64) float64 {
	s.seen = append([]float64(nil), features...)
	return s.probability
}

func TestScoredEvaluator_CutoffIsExclusive(t *testing.T) {
	above := &stubScorer{probability: 0.71}
	e := NewScoredEvaluator(above, 0.7)

	dec := e.Evaluate(testReading(35.0, 18.0), 0, DefaultEnrichment())
	if !dec.ActionNeeded {
		t.Error("Expected action for probability 0.71 with cutoff 0.7")
	}
	if dec.Confidence != 0.71 {
		t.Errorf("Expected confidence 0.71, got %.2f", dec.Confidence)
	}

	at := &stubScorer{probability: 0.70}
	e = NewScoredEvaluator(at, 0.7)

	dec = e.Evaluate(testReading(35.0, 18.0), 0, DefaultEnrichment())
	if dec.ActionNeeded {
		t.Error("Expected no action for probability exactly at the cutoff")
	}
}

func TestScoredEvaluator_FeatureOrder(t *testing.T) {
	scorer := &stubScorer{probability: 0.5}
	e := NewScoredEvaluator(scorer, 0.7)

	enrichment := &Enrichment{
		AmbientTemperature: 28.0,
		AmbientHumidity:    65.0,
		Precipitation:      1.5,
	}

	e.Evaluate(testReading(35.0, 18.0), 4.2, enrichment)

	expected := []float64{35.0, 18.0, 28.0, 65.0, 4.2}
	if len(scorer.seen) != len(expected) {
		t.Fatalf("Expected %d features, got %d", len(expected), len(scorer.seen))
	}
	for i, v := range expected {
		if scorer.seen[i] != v {
			t.Errorf("Feature %d: expected %.1f, got %.1f", i, v, scorer.seen[i])
		}
	}
}

func TestScoredEvaluator_MissingEnrichmentUsesDefaults(t *testing.T) {
	scorer := &stubScorer{probability: 0.5}
	e := NewScoredEvaluator(scorer, 0.7)

	// A nil enrichment must not panic and must fall back to the
	// documented defaults
	e.Evaluate(testReading(35.0, 18.0), 0, nil)

	if scorer.seen[2] != DefaultAmbientTemperature {
		t.Errorf("Expected default ambient temperature %v, got %v",
			DefaultAmbientTemperature, scorer.seen[2])
	}
	if scorer.seen[3] != DefaultAmbientHumidity {
		t.Errorf("Expected default ambient humidity %v, got %v",
			DefaultAmbientHumidity, scorer.seen[3])
	}
}
