package main

import (
	"flag"
	"time"

	"footypredict/internal/artifact"
	"footypredict/internal/cfg"
	"footypredict/internal/feed"
	"footypredict/internal/model"
	"footypredict/internal/storage"
	"footypredict/internal/train"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	var (
		fromStr     = flag.String("from", "", "train on matches from this date (YYYY-MM-DD, default: all history)")
		toStr       = flag.String("to", "", "train on matches up to this date (YYYY-MM-DD, default: now)")
		ingest      = flag.Bool("ingest", false, "fetch matches and odds from the feed before training")
		competition = flag.String("competition", "PL", "competition code to ingest")
		season      = flag.String("season", "", "season to ingest, e.g. 2025")
	)
	flag.Parse()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("storage open failed")
	}
	defer store.Close()

	if *ingest {
		ingestHistory(c, store, *competition, *season)
	}

	opts := train.DefaultOptions()
	opts.Features = c.Features
	opts.Fit = model.FitOptions{Rounds: c.Rounds, LearningRate: c.LearningRate}
	opts.HoldoutRatio = c.HoldoutRatio
	if *fromStr != "" {
		opts.From = parseDate(*fromStr)
	}
	if *toStr != "" {
		opts.To = parseDate(*toStr)
	}

	result, err := train.Run(store, artifact.NewFSStore(c.ModelsDir), opts)
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}

	log.Info().
		Str("version", result.Version).
		Float64("accuracy", result.Metrics.Accuracy).
		Float64("log_loss", result.Metrics.LogLoss).
		Msg("model trained")
}

func ingestHistory(c cfg.Settings, store *storage.Store, competition, season string) {
	client := feed.NewREST(c.FeedKey, c.FeedBaseURL, c.RESTTimeout)

	matches, err := client.FetchMatches(competition, season)
	if err != nil {
		log.Fatal().Err(err).Str("competition", competition).Msg("match ingestion failed")
	}
	for _, m := range matches {
		if err := store.PutMatch(m); err != nil {
			log.Fatal().Err(err).Int64("match_id", m.ID).Msg("match write failed")
		}
		quotes, err := client.FetchOdds(m.ID)
		if err != nil {
			log.Warn().Err(err).Int64("match_id", m.ID).Msg("odds fetch failed, continuing without")
			continue
		}
		for _, o := range quotes {
			if err := store.PutOdds(o); err != nil {
				log.Fatal().Err(err).Int64("match_id", m.ID).Msg("odds write failed")
			}
		}
	}
	log.Info().Int("matches", len(matches)).Str("competition", competition).Msg("history ingested")
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatal().Err(err).Str("date", s).Msg("invalid date")
	}
	return t
}
