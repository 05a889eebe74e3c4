package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// artifact is the on-disk format of a trained irrigation model: logistic
// regression weights exported after training. FeatureNames documents the
// expected input order.
type artifact struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
}

// LogisticModel scores a feature vector against pre-trained weights.
// Scoring is deterministic and side-effect free.
type LogisticModel struct {
	featureNames []string
	weights      []float64
	intercept    float64
}

// Load reads a model artifact from disk. Callers treat a load failure as
// fatal at startup: no decision can be made without the model.
func Load(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if len(a.Weights) == 0 {
		return nil, fmt.Errorf("model artifact has no weights")
	}
	if len(a.FeatureNames) > 0 && len(a.FeatureNames) != len(a.Weights) {
		return nil, fmt.Errorf("model artifact mismatch: %d feature names, %d weights",
			len(a.FeatureNames), len(a.Weights))
	}

	return &LogisticModel{
		featureNames: a.FeatureNames,
		weights:      a.Weights,
		intercept:    a.Intercept,
	}, nil
}

// FeatureCount returns the expected length of the feature vector.
func (m *LogisticModel) FeatureCount() int {
	return len(m.weights)
}

// FeatureNames returns the documented input order, if the artifact
// carried one.
func (m *LogisticModel) FeatureNames() []string {
	return m.featureNames
}

// Score returns the predicted probability for the feature vector. Extra
// features are ignored; missing features count as zero.
func (m *LogisticModel) Score(features []float64) float64 {
	z := m.intercept
	for i, w := range m.weights {
		if i >= len(features) {
			break
		}
		z += w * features[i]
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
