package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// EnsembleKind identifies a trained boosted-stump artifact.
const EnsembleKind = "gbdt"

// maxThresholdCandidates caps the split candidates tried per feature.
const maxThresholdCandidates = 16

// Stump is a depth-1 regression tree: one feature, one threshold, two
// leaf values. Leaf values are stored with the learning rate already
// applied.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
	Gain      float64 `json:"gain"`
}

// Ensemble is a gradient-boosted stump classifier over three outcome
// classes, trained with softmax loss one stump per class per round.
type Ensemble struct {
	NumClasses   int       `json:"num_classes"`
	LearningRate float64   `json:"learning_rate"`
	Base         []float64 `json:"base"`
	Rounds       [][]Stump `json:"rounds"`
	Columns      []string  `json:"columns"`
}

// FitOptions controls training.
type FitOptions struct {
	Rounds       int
	LearningRate float64
}

// DefaultFitOptions returns the standard training configuration.
func DefaultFitOptions() FitOptions {
	return FitOptions{Rounds: 100, LearningRate: 0.1}
}

// Fit trains the ensemble on the given samples. X is row-major with one
// value per column, y holds class labels in [0, numClasses).
func Fit(x [][]float64, y []int, columns []string, opts FitOptions) (*Ensemble, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("training set mismatch: %d rows, %d labels", len(x), len(y))
	}
	if opts.Rounds <= 0 || opts.LearningRate <= 0 {
		return nil, errors.New("rounds and learning rate must be positive")
	}
	const numClasses = 3
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("label out of range at row %d: %d", i, label)
		}
	}

	n := len(x)
	e := &Ensemble{
		NumClasses:   numClasses,
		LearningRate: opts.LearningRate,
		Base:         make([]float64, numClasses),
		Columns:      append([]string{}, columns...),
	}

	// Log class priors as the initial raw score.
	counts := make([]float64, numClasses)
	for _, label := range y {
		counts[label]++
	}
	for k := range e.Base {
		prior := (counts[k] + 1) / float64(n+numClasses) // Laplace smoothed
		e.Base[k] = math.Log(prior)
	}

	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = append([]float64{}, e.Base...)
	}

	residual := make([]float64, n)
	for round := 0; round < opts.Rounds; round++ {
		stumps := make([]Stump, numClasses)
		for k := 0; k < numClasses; k++ {
			for i := range x {
				p := softmax(raw[i])
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				residual[i] = target - p[k]
			}
			stumps[k] = fitStump(x, residual, opts.LearningRate)
		}
		for i := range x {
			for k := 0; k < numClasses; k++ {
				raw[i][k] += stumps[k].eval(x[i])
			}
		}
		e.Rounds = append(e.Rounds, stumps)
	}
	return e, nil
}

// PredictProba sums the stump outputs onto the base scores and applies
// softmax. Vectors shorter than the trained column set read as zero.
func (e *Ensemble) PredictProba(features []float64) []float64 {
	raw := append([]float64{}, e.Base...)
	for _, round := range e.Rounds {
		for k, s := range round {
			raw[k] += s.eval(features)
		}
	}
	return softmax(raw)
}

func (e *Ensemble) Kind() string { return EnsembleKind }

// FeatureImportance aggregates split gains per column, normalized to
// sum to 1. Columns that never split are absent.
func (e *Ensemble) FeatureImportance() map[string]float64 {
	gains := make(map[string]float64)
	var total float64
	for _, round := range e.Rounds {
		for _, s := range round {
			if s.Gain <= 0 || s.Feature >= len(e.Columns) {
				continue
			}
			gains[e.Columns[s.Feature]] += s.Gain
			total += s.Gain
		}
	}
	if total > 0 {
		for col := range gains {
			gains[col] /= total
		}
	}
	return gains
}

func (s Stump) eval(features []float64) float64 {
	v := 0.0
	if s.Feature < len(features) {
		v = features[s.Feature]
	}
	if v <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// fitStump picks the feature/threshold split with the best squared-error
// reduction on the residuals and stores learning-rate-scaled leaf means.
func fitStump(x [][]float64, residual []float64, lr float64) Stump {
	n := len(x)
	numFeatures := len(x[0])

	totalMean := mean(residual)
	baseErr := sse(residual, totalMean)

	best := Stump{Feature: 0, Threshold: 0, Left: lr * totalMean, Right: lr * totalMean, Gain: 0}

	for f := 0; f < numFeatures; f++ {
		for _, threshold := range thresholdCandidates(x, f) {
			var leftSum, rightSum float64
			var leftN, rightN int
			for i := 0; i < n; i++ {
				if x[i][f] <= threshold {
					leftSum += residual[i]
					leftN++
				} else {
					rightSum += residual[i]
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}
			leftMean := leftSum / float64(leftN)
			rightMean := rightSum / float64(rightN)

			var splitErr float64
			for i := 0; i < n; i++ {
				if x[i][f] <= threshold {
					d := residual[i] - leftMean
					splitErr += d * d
				} else {
					d := residual[i] - rightMean
					splitErr += d * d
				}
			}

			gain := baseErr - splitErr
			if gain > best.Gain {
				best = Stump{
					Feature:   f,
					Threshold: threshold,
					Left:      lr * leftMean,
					Right:     lr * rightMean,
					Gain:      gain,
				}
			}
		}
	}
	return best
}

// thresholdCandidates returns up to maxThresholdCandidates midpoints
// between adjacent distinct values of the feature.
func thresholdCandidates(x [][]float64, feature int) []float64 {
	vals := make([]float64, 0, len(x))
	for _, row := range x {
		vals = append(vals, row[feature])
	}
	sort.Float64s(vals)

	distinct := vals[:0]
	for i, v := range vals {
		if i == 0 || v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	mids := make([]float64, 0, len(distinct)-1)
	for i := 1; i < len(distinct); i++ {
		mids = append(mids, (distinct[i-1]+distinct[i])/2)
	}
	if len(mids) <= maxThresholdCandidates {
		return mids
	}

	step := float64(len(mids)) / float64(maxThresholdCandidates)
	sampled := make([]float64, 0, maxThresholdCandidates)
	for i := 0; i < maxThresholdCandidates; i++ {
		sampled = append(sampled, mids[int(float64(i)*step)])
	}
	return sampled
}

func softmax(raw []float64) []float64 {
	maxRaw := raw[0]
	for _, v := range raw[1:] {
		if v > maxRaw {
			maxRaw = v
		}
	}
	out := make([]float64, len(raw))
	var sum float64
	for i, v := range raw {
		out[i] = math.Exp(v - maxRaw)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func mean(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func sse(vals []float64, m float64) float64 {
	var s float64
	for _, v := range vals {
		d := v - m
		s += d * d
	}
	return s
}
