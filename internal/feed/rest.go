package feed

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client fetches historical matches and odds from the upstream data API.
type Client struct {
	key, base string
	rest      *resty.Client
}

func NewREST(key, base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{key, base, r}
}

type matchesResp struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Matches []struct {
		ID        int64  `json:"id"`
		HomeTeam  string `json:"homeTeam"`
		AwayTeam  string `json:"awayTeam"`
		Date      string `json:"utcDate"`
		HomeGoals int    `json:"homeGoals"`
		AwayGoals int    `json:"awayGoals"`
	} `json:"matches"`
}

type oddsResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Odds []struct {
		Bookmaker string  `json:"bookmaker"`
		Home      float64 `json:"home"`
		Draw      float64 `json:"draw"`
		Away      float64 `json:"away"`
	} `json:"odds"`
}

// FetchMatches returns the finalized fixtures of a competition season.
func (c *Client) FetchMatches(competition, season string) ([]MatchRecord, error) {
	resp := &matchesResp{}
	_, err := c.rest.R().
		SetHeader("X-Auth-Token", c.key).
		SetQueryParam("season", season).
		SetResult(resp).
		Get(fmt.Sprintf("%s/v1/competitions/%s/matches", c.base, competition))
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("feed: %d %s", resp.Code, resp.Msg)
	}

	out := make([]MatchRecord, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		date, err := time.Parse(time.RFC3339, m.Date)
		if err != nil {
			return nil, fmt.Errorf("feed: bad match date %q: %w", m.Date, err)
		}
		out = append(out, MatchRecord{
			ID:        m.ID,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			Date:      date,
			HomeGoals: m.HomeGoals,
			AwayGoals: m.AwayGoals,
			Result:    ResultFromScore(m.HomeGoals, m.AwayGoals),
		})
	}
	return out, nil
}

// FetchOdds returns all bookmaker 1X2 quotes recorded for a match.
func (c *Client) FetchOdds(matchID int64) ([]OddsRecord, error) {
	resp := &oddsResp{}
	_, err := c.rest.R().
		SetHeader("X-Auth-Token", c.key).
		SetResult(resp).
		Get(fmt.Sprintf("%s/v1/matches/%d/odds", c.base, matchID))
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("feed: %d %s", resp.Code, resp.Msg)
	}

	out := make([]OddsRecord, 0, len(resp.Odds))
	for _, o := range resp.Odds {
		out = append(out, OddsRecord{
			MatchID:   matchID,
			Bookmaker: o.Bookmaker,
			HomeOdds:  o.Home,
			DrawOdds:  o.Draw,
			AwayOdds:  o.Away,
		})
	}
	return out, nil
}
