package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// OddsStream consumes the bookmaker's live 1X2 odds feed.
type OddsStream struct{ url string }

func NewOddsStream(u string) OddsStream { return OddsStream{u} }

type oddsFrame struct {
	MatchID   int64   `json:"matchId"`
	Bookmaker string  `json:"bookmaker"`
	Home      float64 `json:"home"`
	Draw      float64 `json:"draw"`
	Away      float64 `json:"away"`
}

// Stream pushes odds updates onto the given channel until the context is
// cancelled, reconnecting with exponential backoff on any failure.
func (w OddsStream) Stream(ctx context.Context, updates chan<- OddsRecord, errors chan<- error, ping time.Duration) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := w.streamOnce(ctx, updates, ping); err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("odds stream disconnected, reconnecting")
				select {
				case errors <- fmt.Errorf("odds stream reconnect: %w", err):
				default:
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

func (w OddsStream) streamOnce(ctx context.Context, updates chan<- OddsRecord, ping time.Duration) error {
	log.Info().Str("url", w.url).Msg("connecting to odds stream")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	if err := conn.SetReadDeadline(time.Now().Add(2 * ping)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * ping))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(ping)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		var frame oddsFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			log.Debug().Err(err).Msg("skipping malformed odds frame")
			continue
		}
		if frame.MatchID == 0 || frame.Home <= 1 || frame.Draw <= 1 || frame.Away <= 1 {
			continue
		}

		rec := OddsRecord{
			MatchID:   frame.MatchID,
			Bookmaker: frame.Bookmaker,
			HomeOdds:  frame.Home,
			DrawOdds:  frame.Draw,
			AwayOdds:  frame.Away,
		}
		select {
		case updates <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
