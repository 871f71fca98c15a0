package feed

import "time"

// Match result codes as carried on the wire and in storage.
const (
	ResultHome = "H"
	ResultDraw = "D"
	ResultAway = "A"
)

// MatchRecord is one finalized fixture. Immutable once the result is set.
type MatchRecord struct {
	ID        int64     `json:"id"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Date      time.Time `json:"date"`
	HomeGoals int       `json:"home_goals"`
	AwayGoals int       `json:"away_goals"`
	Result    string    `json:"result"` // H, D or A
}

// OddsRecord is a 1X2 decimal-odds quote for a match. A match may carry
// quotes from several bookmakers; the latest one wins downstream.
type OddsRecord struct {
	MatchID   int64   `json:"match_id"`
	Bookmaker string  `json:"bookmaker"`
	HomeOdds  float64 `json:"home_odds"`
	DrawOdds  float64 `json:"draw_odds"`
	AwayOdds  float64 `json:"away_odds"`
}

// ResultFromScore derives the H/D/A code from a final score.
func ResultFromScore(homeGoals, awayGoals int) string {
	switch {
	case homeGoals > awayGoals:
		return ResultHome
	case homeGoals < awayGoals:
		return ResultAway
	default:
		return ResultDraw
	}
}
