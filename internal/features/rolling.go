// Package features turns raw match and odds records into the numeric
// feature set consumed by the outcome model. Rolling aggregates are
// computed over each team's prior matches only, so a match never
// contributes to its own features.
package features

import (
	"errors"
	"fmt"
	"math"

	"footypredict/internal/feed"
)

var (
	ErrInvalidWindow = errors.New("rolling window must be positive")
	ErrUnknownStat   = errors.New("unsupported rolling statistic")
)

// Points per match under the standard 3/1/0 scheme.
const (
	winPoints  = 3.0
	drawPoints = 1.0
	lossPoints = 0.0
)

// neutralForm is the midpoint default used when a team has no history.
const neutralForm = 1.5

// Engine computes trailing-window aggregates over chronologically
// ordered matches. Inputs must be sorted by date ascending; the builder
// guarantees that.
type Engine struct{}

func NewEngine() Engine { return Engine{} }

// pointsFor returns the points the given team earned in the match.
func pointsFor(m feed.MatchRecord, team string) float64 {
	switch m.Result {
	case feed.ResultDraw:
		return drawPoints
	case feed.ResultHome:
		if team == m.HomeTeam {
			return winPoints
		}
		return lossPoints
	case feed.ResultAway:
		if team == m.AwayTeam {
			return winPoints
		}
		return lossPoints
	}
	return lossPoints
}

// RecentForm returns the trailing average of points earned over up to
// `window` matches strictly before each match, for the home and away
// team respectively. A team with no prior matches gets the neutral 1.5.
func (Engine) RecentForm(matches []feed.MatchRecord, window int) (home, away []float64, err error) {
	if window <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	home = make([]float64, len(matches))
	away = make([]float64, len(matches))
	history := make(map[string][]float64)

	for i, m := range matches {
		home[i] = trailingMean(history[m.HomeTeam], window, neutralForm)
		away[i] = trailingMean(history[m.AwayTeam], window, neutralForm)

		history[m.HomeTeam] = append(history[m.HomeTeam], pointsFor(m, m.HomeTeam))
		history[m.AwayTeam] = append(history[m.AwayTeam], pointsFor(m, m.AwayTeam))
	}
	return home, away, nil
}

// GoalDifference returns the trailing mean of (goals for - goals
// against) per team over `window` prior matches, aligned with the home
// and away team of each match. Missing history yields NaN so the
// builder's cleaning pass can impute it.
func (Engine) GoalDifference(matches []feed.MatchRecord, window int) (home, away []float64, err error) {
	if window <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	home = make([]float64, len(matches))
	away = make([]float64, len(matches))
	history := make(map[string][]float64)

	for i, m := range matches {
		home[i] = trailingMean(history[m.HomeTeam], window, math.NaN())
		away[i] = trailingMean(history[m.AwayTeam], window, math.NaN())

		history[m.HomeTeam] = append(history[m.HomeTeam], float64(m.HomeGoals-m.AwayGoals))
		history[m.AwayTeam] = append(history[m.AwayTeam], float64(m.AwayGoals-m.HomeGoals))
	}
	return home, away, nil
}

// GoalAverages carries per-match trailing goal rates for both sides.
type GoalAverages struct {
	HomeScored, HomeConceded []float64
	AwayScored, AwayConceded []float64
}

// GoalAverages returns trailing means of goals scored and conceded per
// team over `window` prior matches. Missing history yields NaN.
func (Engine) GoalAverages(matches []feed.MatchRecord, window int) (GoalAverages, error) {
	if window <= 0 {
		return GoalAverages{}, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	n := len(matches)
	g := GoalAverages{
		HomeScored:   make([]float64, n),
		HomeConceded: make([]float64, n),
		AwayScored:   make([]float64, n),
		AwayConceded: make([]float64, n),
	}
	scored := make(map[string][]float64)
	conceded := make(map[string][]float64)

	for i, m := range matches {
		g.HomeScored[i] = trailingMean(scored[m.HomeTeam], window, math.NaN())
		g.HomeConceded[i] = trailingMean(conceded[m.HomeTeam], window, math.NaN())
		g.AwayScored[i] = trailingMean(scored[m.AwayTeam], window, math.NaN())
		g.AwayConceded[i] = trailingMean(conceded[m.AwayTeam], window, math.NaN())

		scored[m.HomeTeam] = append(scored[m.HomeTeam], float64(m.HomeGoals))
		conceded[m.HomeTeam] = append(conceded[m.HomeTeam], float64(m.AwayGoals))
		scored[m.AwayTeam] = append(scored[m.AwayTeam], float64(m.AwayGoals))
		conceded[m.AwayTeam] = append(conceded[m.AwayTeam], float64(m.HomeGoals))
	}
	return g, nil
}

// Observation is one row of a grouped series for the generic rolling op.
type Observation struct {
	Group string
	Value float64
}

// Rolling computes trailing aggregates of the observation values grouped
// by Observation.Group, window-inclusive of the current row, one slice
// per requested statistic. Supported statistics: mean, std, sum, max,
// min. std requires at least two observations in the window and yields
// NaN for a lone one.
func (Engine) Rolling(obs []Observation, window int, stats []string) (map[string][]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	for _, s := range stats {
		switch s {
		case "mean", "std", "sum", "max", "min":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStat, s)
		}
	}

	out := make(map[string][]float64, len(stats))
	for _, s := range stats {
		out[s] = make([]float64, len(obs))
	}
	history := make(map[string][]float64)

	for i, o := range obs {
		history[o.Group] = append(history[o.Group], o.Value)
		win := tail(history[o.Group], window)
		for _, s := range stats {
			out[s][i] = aggregate(win, s)
		}
	}
	return out, nil
}

func aggregate(win []float64, stat string) float64 {
	switch stat {
	case "mean":
		return mean(win)
	case "sum":
		var s float64
		for _, v := range win {
			s += v
		}
		return s
	case "max":
		m := win[0]
		for _, v := range win[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case "min":
		m := win[0]
		for _, v := range win[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case "std":
		if len(win) < 2 {
			return math.NaN()
		}
		mu := mean(win)
		var ss float64
		for _, v := range win {
			d := v - mu
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(win)-1))
	}
	return math.NaN()
}

// trailingMean averages up to the last `window` values, or returns the
// default when there is no history at all.
func trailingMean(history []float64, window int, def float64) float64 {
	win := tail(history, window)
	if len(win) == 0 {
		return def
	}
	return mean(win)
}

func tail(vals []float64, n int) []float64 {
	if len(vals) > n {
		return vals[len(vals)-n:]
	}
	return vals
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}
