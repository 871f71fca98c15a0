// Package ml serves match-outcome probabilities. The predictor loads
// the latest trained artifact at construction and degrades to a stub
// scorer instead of failing when no usable artifact exists, so the
// serving layer can start before the training pipeline has ever run.
package ml

import (
	"errors"
	"sync"
	"time"

	"footypredict/internal/artifact"
	"footypredict/internal/features"
	"footypredict/internal/model"

	"github.com/rs/zerolog/log"
)

// Default odds applied to batch items that omit a quote.
const (
	defaultOddsH = 2.0
	defaultOddsD = 3.0
	defaultOddsA = 3.0
)

// ErrNoModel is returned when prediction is attempted with no scorer at
// all. The stub fallback makes this unreachable through the public
// constructors; the guard protects a hand-built Predictor.
var ErrNoModel = errors.New("no model loaded")

// MetricsInterface defines the metrics methods the predictor needs.
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc()
	FallbackUseInc()
	LatencyObserve(float64)
	ModelAgeSet(float64)
}

// PredictionRequest describes one hypothetical match to score.
type PredictionRequest struct {
	HomeTeam  string               `json:"home_team"`
	AwayTeam  string               `json:"away_team"`
	OddsH     float64              `json:"odds_h"`
	OddsD     float64              `json:"odds_d"`
	OddsA     float64              `json:"odds_a"`
	TeamStats *features.MatchStats `json:"team_stats,omitempty"`
}

// Prediction is the 3-way outcome distribution for one match.
type Prediction struct {
	HomeWin      float64 `json:"home_win"`
	Draw         float64 `json:"draw"`
	AwayWin      float64 `json:"away_win"`
	ModelVersion string  `json:"model_version,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// ModelInfo reports the predictor's loaded state.
type ModelInfo struct {
	Status         string   `json:"status,omitempty"`
	ModelVersion   string   `json:"model_version,omitempty"`
	ModelType      string   `json:"model_type,omitempty"`
	IsLoaded       bool     `json:"is_loaded"`
	NFeatures      int      `json:"n_features,omitempty"`
	FeatureColumns []string `json:"feature_columns,omitempty"`
}

// Predictor holds exactly one scorer. Inference is read-only after
// construction so a single instance can serve concurrent requests.
type Predictor struct {
	mu      sync.RWMutex
	scorer  model.Scorer
	version string
	schema  features.Schema
	builder *features.Builder
	metrics MetricsInterface
}

// New builds a predictor from the latest artifact in the store, falling
// back to the stub scorer on any load failure.
func New(store artifact.Store, metrics MetricsInterface) *Predictor {
	return NewWithVersion(store, "", metrics)
}

// NewWithVersion loads a specific version, or the latest when version
// is empty. The returned predictor always has a usable scorer.
func NewWithVersion(store artifact.Store, version string, metrics MetricsInterface) *Predictor {
	p := &Predictor{
		builder: features.NewBuilder(),
		schema:  features.DefaultSchema(),
		metrics: metrics,
	}

	if version == "" {
		latest, err := store.Latest()
		if err != nil {
			p.fallBack(err)
			return p
		}
		version = latest
	}

	ensemble, meta, err := store.Load(version)
	if err != nil {
		p.fallBack(err)
		return p
	}

	p.scorer = ensemble
	p.version = version
	if len(meta.FeatureColumns) > 0 {
		p.schema = features.Schema{Columns: meta.FeatureColumns, Fill: 0.0}
	}
	if p.metrics != nil && !meta.TrainedAt.IsZero() {
		p.metrics.ModelAgeSet(time.Since(meta.TrainedAt).Seconds())
	}
	log.Info().Str("version", version).Int("columns", len(p.schema.Columns)).Msg("model artifact loaded")
	return p
}

// fallBack installs the stub scorer. Non-fatal: serving continues with
// explicitly degraded output.
func (p *Predictor) fallBack(err error) {
	log.Warn().Err(err).Msg("model load failed, serving stub predictions")
	p.scorer = model.StubModel{}
	p.version = ""
	if p.metrics != nil {
		p.metrics.FallbackUseInc()
	}
}

// PredictSingle scores one match. The feature vector is reindexed to the
// trained column set, padding anything the model expects but the vector
// lacks with the schema fill value.
func (p *Predictor) PredictSingle(req PredictionRequest) (Prediction, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	p.mu.RLock()
	scorer := p.scorer
	version := p.version
	schema := p.schema
	p.mu.RUnlock()

	if scorer == nil {
		if p.metrics != nil {
			p.metrics.FailuresInc()
		}
		return Prediction{}, ErrNoModel
	}

	vector, err := p.builder.CreateFeatureVector(req.HomeTeam, req.AwayTeam, req.OddsH, req.OddsD, req.OddsA, req.TeamStats)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FailuresInc()
		}
		return Prediction{}, err
	}

	probs := scorer.PredictProba(schema.Vector(vector))
	if p.metrics != nil {
		p.metrics.PredictionsInc()
	}

	return Prediction{
		HomeWin:      probs[0],
		Draw:         probs[1],
		AwayWin:      probs[2],
		ModelVersion: version,
	}, nil
}

// PredictBatch scores each match independently. A failing item yields a
// uniform degraded result carrying the error message; the rest of the
// batch is unaffected. Output length always equals input length.
func (p *Predictor) PredictBatch(reqs []PredictionRequest) []Prediction {
	out := make([]Prediction, len(reqs))
	for i, req := range reqs {
		if req.OddsH == 0 {
			req.OddsH = defaultOddsH
		}
		if req.OddsD == 0 {
			req.OddsD = defaultOddsD
		}
		if req.OddsA == 0 {
			req.OddsA = defaultOddsA
		}

		pred, err := p.PredictSingle(req)
		if err != nil {
			out[i] = Prediction{HomeWin: 0.33, Draw: 0.34, AwayWin: 0.33, Error: err.Error()}
			continue
		}
		out[i] = pred
	}
	return out
}

// ModelInfo reports what is currently loaded.
func (p *Predictor) ModelInfo() ModelInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.scorer == nil {
		return ModelInfo{Status: "no_model_loaded"}
	}
	return ModelInfo{
		ModelVersion:   p.version,
		ModelType:      p.scorer.Kind(),
		IsLoaded:       true,
		NFeatures:      len(p.schema.Columns),
		FeatureColumns: p.schema.Columns,
	}
}
