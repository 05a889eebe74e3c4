package decision

import (
	"github.com/ranjitk/sensor-monitor/internal/reading"
)

// Enrichment is external context merged into an evaluation, typically
// fetched from a weather service per cycle.
type Enrichment struct {
	AmbientTemperature float64
	AmbientHumidity    float64
	Precipitation      float64
}

// Defaults used when the enrichment service is unavailable. Evaluation
// must proceed with these rather than abort the cycle.
const (
	DefaultAmbientTemperature = 25.0
	DefaultAmbientHumidity    = 50.0
	DefaultPrecipitation      = 0.0
)

// DefaultEnrichment returns the documented fallback values.
func DefaultEnrichment() *Enrichment {
	return &Enrichment{
		AmbientTemperature: DefaultAmbientTemperature,
		AmbientHumidity:    DefaultAmbientHumidity,
		Precipitation:      DefaultPrecipitation,
	}
}

// Decision is the outcome of evaluating one reading.
type Decision struct {
	ActionNeeded bool
	Confidence   float64 // in [0,1]
	Basis        reading.Reading
	Aggregate    float64 // rolling window value the decision was based on
}

// Evaluator maps a current reading, a rolling aggregate and optional
// enrichment data to a decision. A nil enrichment means the external
// fetch failed; implementations substitute defaults and continue.
type Evaluator interface {
	Evaluate(current reading.Reading, aggregate float64, enrichment *Enrichment) Decision
}

// ThresholdEvaluator triggers when either metric strictly exceeds its
// limit. Values exactly equal to a limit do not trigger. Confidence is
// not meaningful for this variant: 1.0 when triggered, 0.0 otherwise.
type ThresholdEvaluator struct {
	PrimaryLimit   float64
	SecondaryLimit float64
}

// NewThresholdEvaluator creates a fixed-threshold evaluator.
func NewThresholdEvaluator(primaryLimit, secondaryLimit float64) *ThresholdEvaluator {
	return &ThresholdEvaluator{
		PrimaryLimit:   primaryLimit,
		SecondaryLimit: secondaryLimit,
	}
}

// Evaluate compares the reading against the configured limits.
func (e *ThresholdEvaluator) Evaluate(current reading.Reading, aggregate float64, _ *Enrichment) Decision {
	triggered := current.Primary > e.PrimaryLimit || current.Secondary > e.SecondaryLimit

	confidence := 0.0
	if triggered {
		confidence = 1.0
	}

	return Decision{
		ActionNeeded: triggered,
		Confidence:   confidence,
		Basis:        current,
		Aggregate:    aggregate,
	}
}

// Scorer is an opaque pre-trained predictor. Given a fixed-order feature
// vector it returns a probability in [0,1]. Implementations must be
// deterministic for identical inputs and must not mutate the slice.
type Scorer interface {
	Score(features []float64) float64
}

// ScoredEvaluator delegates to a Scorer over the feature vector
// [primary, secondary, ambient temperature, ambient humidity, aggregate].
// Action is needed when the probability strictly exceeds the cutoff.
type ScoredEvaluator struct {
	scorer Scorer
	cutoff float64
}

// NewScoredEvaluator creates an evaluator around a loaded model.
func NewScoredEvaluator(scorer Scorer, cutoff float64) *ScoredEvaluator {
	return &ScoredEvaluator{scorer: scorer, cutoff: cutoff}
}

// Evaluate scores the reading. A nil enrichment degrades to defaults.
func (e *ScoredEvaluator) Evaluate(current reading.Reading, aggregate float64, enrichment *Enrichment) Decision {
	if enrichment == nil {
		enrichment = DefaultEnrichment()
	}

	features := []float64{
		current.Primary,
		current.Secondary,
		enrichment.AmbientTemperature,
		enrichment.AmbientHumidity,
		aggregate,
	}

	probability := e.scorer.Score(features)

	return Decision{
		ActionNeeded: probability > e.cutoff,
		Confidence:   probability,
		Basis:        current,
		Aggregate:    aggregate,
	}
}
