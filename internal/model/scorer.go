// Package model implements the 3-class outcome scorer: a small
// gradient-boosted stump ensemble for trained artifacts and a fixed
// stub used when no artifact can be loaded.
package model

// Scorer produces class probabilities for a feature vector. The three
// outputs map positionally to home win, draw and away win and sum to 1.
type Scorer interface {
	PredictProba(features []float64) []float64
	Kind() string
}

// StubKind identifies the degraded fallback scorer.
const StubKind = "stub"

// StubModel returns a fixed near-uniform distribution regardless of
// input. It keeps the serving layer alive when no trained artifact
// exists; callers can tell its output apart by the missing version.
type StubModel struct{}

func (StubModel) PredictProba(_ []float64) []float64 {
	return []float64{0.34, 0.33, 0.33}
}

func (StubModel) Kind() string { return StubKind }
