package features

import (
	"errors"
	"math"
	"testing"

	"footypredict/internal/feed"
)

func sampleMatches() []feed.MatchRecord {
	return []feed.MatchRecord{
		match(1, 0, "Arsenal", "Chelsea", 2, 0),
		match(2, 1, "Liverpool", "Arsenal", 1, 1),
		match(3, 2, "Chelsea", "Liverpool", 0, 3),
		match(4, 3, "Arsenal", "Chelsea", 1, 2),
		match(5, 4, "Liverpool", "Chelsea", 2, 2),
		match(6, 5, "Chelsea", "Arsenal", 1, 0),
	}
}

func sampleOdds() []feed.OddsRecord {
	var odds []feed.OddsRecord
	for id := int64(1); id <= 6; id++ {
		odds = append(odds, feed.OddsRecord{
			MatchID: id, Bookmaker: "bookie",
			HomeOdds: 2.0, DrawOdds: 3.0, AwayOdds: 4.0,
		})
	}
	return odds
}

func TestBuildMatchFeatures_EmptyInput(t *testing.T) {
	b := NewBuilder()
	if _, err := b.BuildMatchFeatures(nil, nil, DefaultConfig()); !errors.Is(err, ErrNoMatches) {
		t.Errorf("expected ErrNoMatches, got %v", err)
	}
}

func TestBuildMatchFeatures_InvalidConfig(t *testing.T) {
	b := NewBuilder()
	cfg := DefaultConfig()
	cfg.FormWindow = 0
	if _, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), cfg); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestBuildMatchFeatures_NoMissingValues(t *testing.T) {
	b := NewBuilder()
	table, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(table.Rows))
	}
	for i, row := range table.Rows {
		for _, col := range table.Columns {
			v, ok := row.Values[col]
			if !ok {
				t.Errorf("row %d missing column %s", i, col)
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("row %d column %s is not finite: %v", i, col, v)
			}
		}
	}
}

func TestBuildMatchFeatures_NoMissingValuesWithoutOdds(t *testing.T) {
	// Odds are optional per match; missing quotes are mean-imputed, and
	// a table with no quotes at all still comes out finite.
	b := NewBuilder()
	table, err := b.BuildMatchFeatures(sampleMatches(), nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, row := range table.Rows {
		for _, col := range table.Columns {
			if v := row.Values[col]; math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("row %d column %s is not finite: %v", i, col, v)
			}
		}
	}
}

func TestBuildMatchFeatures_Idempotent(t *testing.T) {
	b := NewBuilder()
	first, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Rows {
		for _, col := range first.Columns {
			if first.Rows[i].Values[col] != second.Rows[i].Values[col] {
				t.Errorf("row %d column %s differs between runs: %v vs %v",
					i, col, first.Rows[i].Values[col], second.Rows[i].Values[col])
			}
		}
	}
}

func TestBuildMatchFeatures_SortsByDate(t *testing.T) {
	matches := sampleMatches()
	// Shuffle input; output must still be chronological.
	matches[0], matches[4] = matches[4], matches[0]
	matches[1], matches[5] = matches[5], matches[1]

	b := NewBuilder()
	table, err := b.BuildMatchFeatures(matches, sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(table.Rows); i++ {
		if table.Rows[i].Date.Before(table.Rows[i-1].Date) {
			t.Errorf("rows out of date order at index %d", i)
		}
	}
	if table.Rows[0].MatchID != 1 {
		t.Errorf("earliest match should be first, got id %d", table.Rows[0].MatchID)
	}
}

func TestBuildMatchFeatures_OddsScenario(t *testing.T) {
	// Odds (2.0, 3.0, 4.0): raw implied 0.5, 0.3333, 0.25 summing to
	// 1.0833; normalized sums to 1 with prob_h_norm ~ 0.4615.
	b := NewBuilder()
	table, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v := table.Rows[0].Values
	if math.Abs(v["prob_h"]-0.5) > 1e-9 {
		t.Errorf("prob_h: got %v, want 0.5", v["prob_h"])
	}
	if math.Abs(v["prob_d"]-1.0/3.0) > 1e-9 {
		t.Errorf("prob_d: got %v, want 0.3333", v["prob_d"])
	}
	if math.Abs(v["prob_a"]-0.25) > 1e-9 {
		t.Errorf("prob_a: got %v, want 0.25", v["prob_a"])
	}

	sum := v["prob_h_norm"] + v["prob_d_norm"] + v["prob_a_norm"]
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("normalized probabilities sum to %v, want 1.0", sum)
	}
	if math.Abs(v["prob_h_norm"]-0.4615) > 1e-3 {
		t.Errorf("prob_h_norm: got %v, want ~0.4615", v["prob_h_norm"])
	}
	if v["favorite_odds"] != 2.0 || v["underdog_odds"] != 4.0 {
		t.Errorf("favorite/underdog: got %v/%v, want 2/4", v["favorite_odds"], v["underdog_odds"])
	}
	if v["market_confidence"] != 0.5 {
		t.Errorf("market_confidence: got %v, want 0.5", v["market_confidence"])
	}
}

func TestBuildMatchFeatures_Labels(t *testing.T) {
	b := NewBuilder()
	table, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{LabelHome, LabelDraw, LabelAway, LabelAway, LabelDraw, LabelHome}
	for i, row := range table.Rows {
		if row.Label != want[i] {
			t.Errorf("row %d: label %d, want %d", i, row.Label, want[i])
		}
	}
}

func TestBuildMatchFeatures_HeadToHead(t *testing.T) {
	b := NewBuilder()
	table, err := b.BuildMatchFeatures(sampleMatches(), sampleOdds(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Match 6 is Chelsea v Arsenal; prior meetings of the pairing are
	// match 1 (Arsenal 2-0) and match 4 (Arsenal 1-2 Chelsea): one win
	// each, no draws.
	v := table.Rows[5].Values
	if math.Abs(v["h2h_home_win_rate"]-0.5) > 1e-9 {
		t.Errorf("h2h_home_win_rate: got %v, want 0.5", v["h2h_home_win_rate"])
	}
	if math.Abs(v["h2h_away_win_rate"]-0.5) > 1e-9 {
		t.Errorf("h2h_away_win_rate: got %v, want 0.5", v["h2h_away_win_rate"])
	}
	if v["h2h_draw_rate"] != 0 {
		t.Errorf("h2h_draw_rate: got %v, want 0", v["h2h_draw_rate"])
	}
	if math.Abs(v["h2h_goals_avg"]-2.5) > 1e-9 {
		t.Errorf("h2h_goals_avg: got %v, want 2.5", v["h2h_goals_avg"])
	}

	// A pairing's first meeting gets neutral priors, not zeros.
	first := table.Rows[0].Values
	if math.Abs(first["h2h_home_win_rate"]-1.0/3.0) > 1e-9 {
		t.Errorf("first meeting h2h rate: got %v, want 1/3", first["h2h_home_win_rate"])
	}
}

func TestCreateFeatureVector_Defaults(t *testing.T) {
	b := NewBuilder()
	v, err := b.CreateFeatureVector("TeamA", "TeamB", 2.0, 3.0, 4.0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v["home_form"] != 1.5 || v["away_form"] != 1.5 {
		t.Errorf("default form: got %v/%v, want 1.5/1.5", v["home_form"], v["away_form"])
	}
	if v["favorite_odds"] != 2.0 {
		t.Errorf("favorite_odds: got %v, want 2.0", v["favorite_odds"])
	}
	if v["underdog_odds"] != 4.0 {
		t.Errorf("underdog_odds: got %v, want 4.0", v["underdog_odds"])
	}
	if v["market_confidence"] != 0.5 {
		t.Errorf("market_confidence: got %v, want 0.5", v["market_confidence"])
	}

	// Online and batch paths must agree on the schema.
	for _, col := range PredictiveColumns {
		if _, ok := v[col]; !ok {
			t.Errorf("vector missing predictive column %s", col)
		}
	}
}

func TestCreateFeatureVector_WithStats(t *testing.T) {
	b := NewBuilder()
	stats := &MatchStats{
		Home: TeamStats{Form: 2.4, GoalsAvg: 2.1, ConcededAvg: 0.8, GoalDiff: 1.3},
		Away: TeamStats{Form: 0.6, GoalsAvg: 0.7, ConcededAvg: 2.2, GoalDiff: -1.5},
	}
	v, err := b.CreateFeatureVector("TeamA", "TeamB", 1.5, 4.0, 6.0, stats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v["home_form"] != 2.4 || v["away_form"] != 0.6 {
		t.Errorf("supplied form not used: got %v/%v", v["home_form"], v["away_form"])
	}
	if v["home_goal_diff"] != 1.3 || v["away_goal_diff"] != -1.5 {
		t.Errorf("supplied goal diff not used: got %v/%v", v["home_goal_diff"], v["away_goal_diff"])
	}
	if v["form_reliable"] != 1.0 {
		t.Errorf("form_reliable should be 1 with stats, got %v", v["form_reliable"])
	}
}

func TestCreateFeatureVector_InvalidInput(t *testing.T) {
	b := NewBuilder()
	cases := []struct {
		name          string
		home, away    string
		oddsH, oddsD  float64
		oddsA         float64
		wantOddsError bool
	}{
		{"missing home", "", "B", 2, 3, 4, false},
		{"missing away", "A", "", 2, 3, 4, false},
		{"odds at 1.0", "A", "B", 1.0, 3, 4, true},
		{"negative odds", "A", "B", 2, -3, 4, true},
		{"zero odds", "A", "B", 2, 3, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.CreateFeatureVector(tc.home, tc.away, tc.oddsH, tc.oddsD, tc.oddsA, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantOddsError && !errors.Is(err, ErrInvalidOdds) {
				t.Errorf("expected ErrInvalidOdds, got %v", err)
			}
		})
	}
}

func TestSchema_VectorPadsMissing(t *testing.T) {
	s := Schema{Columns: []string{"a", "b", "c"}, Fill: 0.0}
	vec := s.Vector(map[string]float64{"a": 1.5, "c": math.NaN()})
	want := []float64{1.5, 0.0, 0.0}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, vec[i], want[i])
		}
	}
}
