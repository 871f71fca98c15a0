package features

import "math"

// PredictiveColumns is the canonical ordered feature set shared by the
// training and serving paths. The trained artifact persists its own copy
// so old models keep scoring even if this list grows.
var PredictiveColumns = []string{
	"is_home",
	"home_form",
	"away_form",
	"form_reliable",
	"home_goals_avg",
	"home_conceded_avg",
	"away_goals_avg",
	"away_conceded_avg",
	"home_goal_diff",
	"away_goal_diff",
	"prob_h",
	"prob_d",
	"prob_a",
	"prob_h_norm",
	"prob_d_norm",
	"prob_a_norm",
	"favorite_odds",
	"underdog_odds",
	"market_confidence",
	"h2h_home_win_rate",
	"h2h_draw_rate",
	"h2h_away_win_rate",
	"h2h_goals_avg",
}

// OutcomeColumns are derived from the final score and live in the
// feature table for analysis only; they are never fed to the model.
var OutcomeColumns = []string{
	"total_goals",
	"goal_difference",
	"both_teams_scored",
	"high_scoring",
	"low_scoring",
}

// Schema pins the ordered column list a model was trained on, plus the
// fill value for columns a vector lacks at inference time. Sharing it
// between training and serving is what keeps the two paths from
// skewing apart.
type Schema struct {
	Columns []string
	Fill    float64
}

// DefaultSchema returns the schema for the current predictive set.
func DefaultSchema() Schema {
	cols := make([]string, len(PredictiveColumns))
	copy(cols, PredictiveColumns)
	return Schema{Columns: cols, Fill: 0.0}
}

// Vector orders the named values into the schema's column order,
// filling absent or non-finite entries with the schema fill value.
func (s Schema) Vector(values map[string]float64) []float64 {
	out := make([]float64, len(s.Columns))
	for i, col := range s.Columns {
		v, ok := values[col]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			v = s.Fill
		}
		out[i] = v
	}
	return out
}
