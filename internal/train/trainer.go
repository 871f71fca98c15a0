// Package train orchestrates offline model training: stored history in,
// versioned artifact out.
package train

import (
	"errors"
	"fmt"
	"math"
	"time"

	"footypredict/internal/artifact"
	"footypredict/internal/features"
	"footypredict/internal/feed"
	"footypredict/internal/model"
	"footypredict/internal/storage"

	"github.com/rs/zerolog/log"
)

// ErrNotEnoughData reports too few labeled matches to fit and evaluate.
var ErrNotEnoughData = errors.New("not enough labeled matches to train")

// minTrainingRows is the floor below which a holdout split is pointless.
const minTrainingRows = 20

// Options configures a training run.
type Options struct {
	From, To     time.Time
	Features     features.Config
	Fit          model.FitOptions
	HoldoutRatio float64
}

// DefaultOptions trains on all stored history with the standard windows
// and a 20% chronological holdout.
func DefaultOptions() Options {
	return Options{
		From:         time.Unix(0, 0),
		To:           time.Now(),
		Features:     features.DefaultConfig(),
		Fit:          model.DefaultFitOptions(),
		HoldoutRatio: 0.2,
	}
}

// Result reports the persisted version and its evaluation.
type Result struct {
	Version string
	Metrics artifact.Metrics
}

// Run builds features from stored history, fits the ensemble, evaluates
// it on the chronological tail, and persists the artifact. Data errors
// (empty history, unusable feature input) propagate to the caller.
func Run(store *storage.Store, artifacts artifact.Store, opts Options) (Result, error) {
	matches, err := store.MatchesInRange(opts.From, opts.To)
	if err != nil {
		return Result{}, fmt.Errorf("load matches: %w", err)
	}

	var odds []feed.OddsRecord
	for _, m := range matches {
		quotes, err := store.OddsForMatch(m.ID)
		if err != nil {
			return Result{}, fmt.Errorf("load odds for match %d: %w", m.ID, err)
		}
		odds = append(odds, quotes...)
	}

	builder := features.NewBuilder()
	table, err := builder.BuildMatchFeatures(matches, odds, opts.Features)
	if err != nil {
		return Result{}, fmt.Errorf("build features: %w", err)
	}

	schema := features.DefaultSchema()
	var x [][]float64
	var y []int
	for _, row := range table.Rows {
		if row.Label < 0 {
			continue
		}
		x = append(x, schema.Vector(row.Values))
		y = append(y, row.Label)
	}
	if len(x) < minTrainingRows {
		return Result{}, fmt.Errorf("%w: %d rows", ErrNotEnoughData, len(x))
	}

	// Chronological split: the table is date-ordered, so the tail is
	// strictly newer than the training slice.
	ratio := opts.HoldoutRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.2
	}
	cut := len(x) - int(float64(len(x))*ratio)
	if cut <= 0 || cut >= len(x) {
		cut = len(x) - 1
	}

	ensemble, err := model.Fit(x[:cut], y[:cut], schema.Columns, opts.Fit)
	if err != nil {
		return Result{}, fmt.Errorf("fit model: %w", err)
	}

	metrics := artifact.Metrics{
		Accuracy:          accuracy(ensemble, x[cut:], y[cut:]),
		LogLoss:           logLoss(ensemble, x[cut:], y[cut:]),
		TrainingSamples:   cut,
		HoldoutSamples:    len(x) - cut,
		FeatureImportance: ensemble.FeatureImportance(),
	}

	version, err := artifacts.Save(ensemble, artifact.Metadata{
		TrainedAt:      time.Now().UTC(),
		FeatureColumns: schema.Columns,
		Metrics:        metrics,
	})
	if err != nil {
		return Result{}, fmt.Errorf("save artifact: %w", err)
	}

	log.Info().
		Str("version", version).
		Float64("accuracy", metrics.Accuracy).
		Float64("log_loss", metrics.LogLoss).
		Int("train_rows", metrics.TrainingSamples).
		Int("holdout_rows", metrics.HoldoutSamples).
		Msg("training run complete")

	return Result{Version: version, Metrics: metrics}, nil
}

func accuracy(s model.Scorer, x [][]float64, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	var correct int
	for i, row := range x {
		probs := s.PredictProba(row)
		best := 0
		for k := 1; k < len(probs); k++ {
			if probs[k] > probs[best] {
				best = k
			}
		}
		if best == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func logLoss(s model.Scorer, x [][]float64, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	const eps = 1e-15
	var total float64
	for i, row := range x {
		probs := s.PredictProba(row)
		p := probs[y[i]]
		if p < eps {
			p = eps
		}
		total -= math.Log(p)
	}
	return total / float64(len(x))
}
