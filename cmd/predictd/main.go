package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footypredict/internal/artifact"
	"footypredict/internal/cfg"
	"footypredict/internal/feed"
	"footypredict/internal/metrics"
	"footypredict/internal/ml"
	"footypredict/internal/server"
	"footypredict/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	predictor := ml.New(artifact.NewFSStore(c.ModelsDir), mw)
	info := predictor.ModelInfo()
	log.Info().
		Str("model_type", info.ModelType).
		Str("model_version", info.ModelVersion).
		Int("n_features", info.NFeatures).
		Msg("predictor ready")

	startMetricsServer(ctx, c)
	if store != nil {
		startOddsStream(ctx, c, store, m)
	}

	srv := server.New(predictor, m, c.ListenPort)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("prediction server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, srv)
}

// initializeStorage opens match/odds storage when DATA_PATH is
// configured; a serving-only deployment can run without it.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataPath, 0o750); err != nil {
		log.Warn().Err(err).Str("path", c.DataPath).Msg("storage unavailable, continuing without odds ingestion")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, continuing without odds ingestion")
		return nil
	}
	return store
}

func startMetricsServer(ctx context.Context, c cfg.Settings) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", c.MetricsPort),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// startOddsStream keeps the odds bucket fresh from the live feed.
func startOddsStream(ctx context.Context, c cfg.Settings, store *storage.Store, m *metrics.Metrics) {
	updates := make(chan feed.OddsRecord, 64)
	errs := make(chan error, 32)

	stream := feed.NewOddsStream(c.OddsWsURL)
	go func() {
		if err := stream.Stream(ctx, updates, errs, c.Ping); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("odds stream stopped")
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case rec := <-updates:
				m.OddsUpdates.Inc()
				if err := store.PutOdds(rec); err != nil {
					m.ErrorsTotal.Inc()
					log.Error().Err(err).Int64("match_id", rec.MatchID).Msg("odds write failed")
				}
			case <-errs:
				m.WSReconnects.Inc()
			}
		}
	}()
}

func waitForShutdown(ctx context.Context, srv *server.Server) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
