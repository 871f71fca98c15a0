package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"footypredict/internal/feed"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoMatches   = errors.New("match table is empty")
	ErrInvalidOdds = errors.New("decimal odds must be greater than 1.0")
)

// Labels for the 3-class outcome: H -> 0, D -> 1, A -> 2.
const (
	LabelHome = 0
	LabelDraw = 1
	LabelAway = 2
)

// Neutral head-to-head defaults used when a pairing has no history.
const (
	neutralH2HRate  = 1.0 / 3.0
	neutralH2HGoals = 2.5
)

// Config controls the rolling windows of the feature pipeline.
type Config struct {
	FormWindow  int `yaml:"formWindow"`
	GoalsWindow int `yaml:"goalsWindow"`
	H2HWindow   int `yaml:"h2hWindow"`
	MinMatches  int `yaml:"minMatches"`
}

// DefaultConfig returns the standard windows: 5 matches of form and
// goals, 10 head-to-head meetings, 3 matches before form counts as
// reliable.
func DefaultConfig() Config {
	return Config{FormWindow: 5, GoalsWindow: 5, H2HWindow: 10, MinMatches: 3}
}

// Row is one match worth of derived features. Label is the outcome
// class, or -1 when the result is unknown.
type Row struct {
	MatchID int64
	Date    time.Time
	Label   int
	Values  map[string]float64
}

// Table is the feature frame produced by the batch path.
type Table struct {
	Columns []string
	Rows    []Row
}

// Builder assembles the feature table and the single-match vector.
type Builder struct {
	engine Engine
}

func NewBuilder() *Builder { return &Builder{engine: NewEngine()} }

// BuildMatchFeatures derives the full feature table from raw matches and
// odds. Matches are sorted by date ascending before any windowed work so
// rolling features stay causal; odds are left-joined by match id with
// the last bookmaker row winning. The output contains no NaN or Inf:
// missing numeric values are mean-imputed per column.
func (b *Builder) BuildMatchFeatures(matches []feed.MatchRecord, odds []feed.OddsRecord, cfg Config) (*Table, error) {
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}
	if cfg.FormWindow <= 0 || cfg.GoalsWindow <= 0 || cfg.H2HWindow <= 0 {
		return nil, fmt.Errorf("%w: form=%d goals=%d h2h=%d",
			ErrInvalidWindow, cfg.FormWindow, cfg.GoalsWindow, cfg.H2HWindow)
	}

	sorted := make([]feed.MatchRecord, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	oddsByMatch := make(map[int64]feed.OddsRecord, len(odds))
	for _, o := range odds {
		oddsByMatch[o.MatchID] = o // latest quote wins
	}

	homeForm, awayForm, err := b.engine.RecentForm(sorted, cfg.FormWindow)
	if err != nil {
		return nil, err
	}
	goalAvgs, err := b.engine.GoalAverages(sorted, cfg.GoalsWindow)
	if err != nil {
		return nil, err
	}
	homeDiff, awayDiff, err := b.engine.GoalDifference(sorted, cfg.GoalsWindow)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Columns: append(append([]string{}, PredictiveColumns...), OutcomeColumns...),
		Rows:    make([]Row, 0, len(sorted)),
	}

	h2h := newH2HTracker(cfg.H2HWindow)
	played := make(map[string]int)

	for i, m := range sorted {
		v := make(map[string]float64, len(t.Columns))

		v["is_home"] = 1.0
		v["home_form"] = homeForm[i]
		v["away_form"] = awayForm[i]
		if played[m.HomeTeam] >= cfg.MinMatches && played[m.AwayTeam] >= cfg.MinMatches {
			v["form_reliable"] = 1.0
		} else {
			v["form_reliable"] = 0.0
		}
		v["home_goals_avg"] = goalAvgs.HomeScored[i]
		v["home_conceded_avg"] = goalAvgs.HomeConceded[i]
		v["away_goals_avg"] = goalAvgs.AwayScored[i]
		v["away_conceded_avg"] = goalAvgs.AwayConceded[i]
		v["home_goal_diff"] = homeDiff[i]
		v["away_goal_diff"] = awayDiff[i]

		if o, ok := oddsByMatch[m.ID]; ok && o.HomeOdds > 1 && o.DrawOdds > 1 && o.AwayOdds > 1 {
			applyOddsFeatures(v, o.HomeOdds, o.DrawOdds, o.AwayOdds)
		} else {
			for _, col := range []string{
				"prob_h", "prob_d", "prob_a",
				"prob_h_norm", "prob_d_norm", "prob_a_norm",
				"favorite_odds", "underdog_odds", "market_confidence",
			} {
				v[col] = math.NaN()
			}
		}

		h2h.apply(v, m)

		total := m.HomeGoals + m.AwayGoals
		v["total_goals"] = float64(total)
		v["goal_difference"] = float64(m.HomeGoals - m.AwayGoals)
		v["both_teams_scored"] = boolFeature(m.HomeGoals > 0 && m.AwayGoals > 0)
		v["high_scoring"] = boolFeature(total > 2)
		v["low_scoring"] = boolFeature(total < 2)

		t.Rows = append(t.Rows, Row{
			MatchID: m.ID,
			Date:    m.Date,
			Label:   labelFor(m.Result),
			Values:  v,
		})

		h2h.record(m)
		played[m.HomeTeam]++
		played[m.AwayTeam]++
	}

	imputeMissing(t)
	return t, nil
}

// TeamStats carries a team's precomputed rolling aggregates for the
// online path. Zero values are replaced by the neutral defaults.
type TeamStats struct {
	Form        float64 `json:"form"`
	GoalsAvg    float64 `json:"goals_avg"`
	ConcededAvg float64 `json:"conceded_avg"`
	GoalDiff    float64 `json:"goal_diff"`
}

// MatchStats bundles both sides' stats for a single hypothetical match.
type MatchStats struct {
	Home TeamStats `json:"home"`
	Away TeamStats `json:"away"`
}

// CreateFeatureVector builds the same predictive feature set as the
// batch path for one hypothetical match. With no team stats supplied all
// form and goal-average fields default to the neutral 1.5.
func (b *Builder) CreateFeatureVector(homeTeam, awayTeam string, oddsH, oddsD, oddsA float64, stats *MatchStats) (map[string]float64, error) {
	if homeTeam == "" || awayTeam == "" {
		return nil, errors.New("home and away team are required")
	}
	if oddsH <= 1 || oddsD <= 1 || oddsA <= 1 {
		return nil, fmt.Errorf("%w: h=%.3f d=%.3f a=%.3f", ErrInvalidOdds, oddsH, oddsD, oddsA)
	}

	v := make(map[string]float64, len(PredictiveColumns))
	v["is_home"] = 1.0

	if stats != nil {
		v["home_form"] = defaultIfZero(stats.Home.Form, neutralForm)
		v["away_form"] = defaultIfZero(stats.Away.Form, neutralForm)
		v["home_goals_avg"] = defaultIfZero(stats.Home.GoalsAvg, neutralForm)
		v["home_conceded_avg"] = defaultIfZero(stats.Home.ConcededAvg, neutralForm)
		v["away_goals_avg"] = defaultIfZero(stats.Away.GoalsAvg, neutralForm)
		v["away_conceded_avg"] = defaultIfZero(stats.Away.ConcededAvg, neutralForm)
		v["home_goal_diff"] = stats.Home.GoalDiff
		v["away_goal_diff"] = stats.Away.GoalDiff
		v["form_reliable"] = 1.0
	} else {
		v["home_form"] = neutralForm
		v["away_form"] = neutralForm
		v["home_goals_avg"] = neutralForm
		v["home_conceded_avg"] = neutralForm
		v["away_goals_avg"] = neutralForm
		v["away_conceded_avg"] = neutralForm
		v["home_goal_diff"] = 0.0
		v["away_goal_diff"] = 0.0
		v["form_reliable"] = 0.0
	}

	applyOddsFeatures(v, oddsH, oddsD, oddsA)

	// No historical table to window over online; neutral pairing priors.
	v["h2h_home_win_rate"] = neutralH2HRate
	v["h2h_draw_rate"] = neutralH2HRate
	v["h2h_away_win_rate"] = neutralH2HRate
	v["h2h_goals_avg"] = neutralH2HGoals

	return v, nil
}

// applyOddsFeatures derives implied probabilities (raw and with the
// bookmaker margin stripped) plus favorite/underdog indicators.
func applyOddsFeatures(v map[string]float64, h, d, a float64) {
	probH, probD, probA := 1/h, 1/d, 1/a
	total := probH + probD + probA

	v["prob_h"] = probH
	v["prob_d"] = probD
	v["prob_a"] = probA
	v["prob_h_norm"] = probH / total
	v["prob_d_norm"] = probD / total
	v["prob_a_norm"] = probA / total

	fav := math.Min(h, a)
	v["favorite_odds"] = fav
	v["underdog_odds"] = math.Max(h, a)
	v["market_confidence"] = 1 / fav
}

// imputeMissing replaces NaN/Inf cells with the finite column mean, or
// zero for a column with no finite values at all.
func imputeMissing(t *Table) {
	for _, col := range t.Columns {
		var sum float64
		var n int
		for _, r := range t.Rows {
			if v, ok := r.Values[col]; ok && isFinite(v) {
				sum += v
				n++
			}
		}
		fill := 0.0
		if n > 0 {
			fill = sum / float64(n)
		} else {
			log.Debug().Str("column", col).Msg("no finite values in column, imputing zero")
		}
		for _, r := range t.Rows {
			if v, ok := r.Values[col]; !ok || !isFinite(v) {
				r.Values[col] = fill
			}
		}
	}
}

// h2hTracker maintains trailing head-to-head history per team pairing.
type h2hTracker struct {
	window   int
	meetings map[string][]feed.MatchRecord
}

func newH2HTracker(window int) *h2hTracker {
	return &h2hTracker{window: window, meetings: make(map[string][]feed.MatchRecord)}
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// apply sets the head-to-head features for the upcoming match from the
// pairing's previous meetings, oriented to the current home side.
func (h *h2hTracker) apply(v map[string]float64, m feed.MatchRecord) {
	prev := tailMatches(h.meetings[pairKey(m.HomeTeam, m.AwayTeam)], h.window)
	if len(prev) == 0 {
		v["h2h_home_win_rate"] = neutralH2HRate
		v["h2h_draw_rate"] = neutralH2HRate
		v["h2h_away_win_rate"] = neutralH2HRate
		v["h2h_goals_avg"] = math.NaN()
		return
	}

	var homeWins, draws, awayWins, goals float64
	for _, p := range prev {
		winner := ""
		switch p.Result {
		case feed.ResultHome:
			winner = p.HomeTeam
		case feed.ResultAway:
			winner = p.AwayTeam
		}
		switch winner {
		case m.HomeTeam:
			homeWins++
		case m.AwayTeam:
			awayWins++
		default:
			draws++
		}
		goals += float64(p.HomeGoals + p.AwayGoals)
	}

	n := float64(len(prev))
	v["h2h_home_win_rate"] = homeWins / n
	v["h2h_draw_rate"] = draws / n
	v["h2h_away_win_rate"] = awayWins / n
	v["h2h_goals_avg"] = goals / n
}

func (h *h2hTracker) record(m feed.MatchRecord) {
	key := pairKey(m.HomeTeam, m.AwayTeam)
	h.meetings[key] = append(h.meetings[key], m)
}

func tailMatches(ms []feed.MatchRecord, n int) []feed.MatchRecord {
	if len(ms) > n {
		return ms[len(ms)-n:]
	}
	return ms
}

func labelFor(result string) int {
	switch result {
	case feed.ResultHome:
		return LabelHome
	case feed.ResultDraw:
		return LabelDraw
	case feed.ResultAway:
		return LabelAway
	}
	return -1
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func defaultIfZero(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
