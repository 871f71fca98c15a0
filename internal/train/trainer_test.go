package train

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"footypredict/internal/artifact"
	"footypredict/internal/feed"
	"footypredict/internal/ml"
	"footypredict/internal/model"
	"footypredict/internal/storage"
)

// seedHistory writes a synthetic season where the stronger teams win,
// with odds roughly tracking strength.
func seedHistory(t *testing.T, store *storage.Store, n int) {
	t.Helper()

	teams := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"}
	start := time.Date(2025, 8, 10, 15, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		home := teams[i%len(teams)]
		away := teams[(i+1+i/len(teams))%len(teams)]
		if home == away {
			away = teams[(i+2)%len(teams)]
		}

		// Lower index = stronger team; strength gap decides the result.
		hs := strength(teams, home)
		as := strength(teams, away)
		var hg, ag int
		switch {
		case hs > as:
			hg, ag = 2+i%2, i%2
		case hs < as:
			hg, ag = i%2, 2+i%2
		default:
			hg, ag = 1, 1
		}

		m := feed.MatchRecord{
			ID:        int64(i + 1),
			HomeTeam:  home,
			AwayTeam:  away,
			Date:      start.AddDate(0, 0, i),
			HomeGoals: hg,
			AwayGoals: ag,
			Result:    feed.ResultFromScore(hg, ag),
		}
		if err := store.PutMatch(m); err != nil {
			t.Fatalf("seed match: %v", err)
		}

		gap := float64(hs - as)
		if err := store.PutOdds(feed.OddsRecord{
			MatchID:   m.ID,
			Bookmaker: "bookie",
			HomeOdds:  clampOdds(2.5 - 0.4*gap),
			DrawOdds:  3.3,
			AwayOdds:  clampOdds(2.5 + 0.4*gap),
		}); err != nil {
			t.Fatalf("seed odds: %v", err)
		}
	}
}

func strength(teams []string, name string) int {
	for i, t := range teams {
		if t == name {
			return len(teams) - i
		}
	}
	return 0
}

func clampOdds(o float64) float64 {
	if o < 1.1 {
		return 1.1
	}
	return o
}

func TestRun_TrainsAndPersists(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	seedHistory(t, store, 120)

	artifacts := artifact.NewFSStore(t.TempDir())

	opts := DefaultOptions()
	opts.To = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	opts.Fit = model.FitOptions{Rounds: 30, LearningRate: 0.2}

	result, err := Run(store, artifacts, opts)
	if err != nil {
		t.Fatalf("training run failed: %v", err)
	}

	if result.Version == "" {
		t.Fatal("training must produce a version")
	}
	if result.Metrics.TrainingSamples == 0 || result.Metrics.HoldoutSamples == 0 {
		t.Errorf("split sizes %d/%d", result.Metrics.TrainingSamples, result.Metrics.HoldoutSamples)
	}
	if result.Metrics.Accuracy <= 0.34 {
		t.Errorf("holdout accuracy %v, want better than chance", result.Metrics.Accuracy)
	}
	if len(result.Metrics.FeatureImportance) == 0 {
		t.Error("feature importance missing from metrics")
	}

	// The persisted artifact must be servable end to end.
	p := ml.New(artifacts, nil)
	info := p.ModelInfo()
	if info.ModelType != model.EnsembleKind {
		t.Errorf("predictor loaded %q, want the trained ensemble", info.ModelType)
	}
	if info.ModelVersion != result.Version {
		t.Errorf("predictor version %q, trained %q", info.ModelVersion, result.Version)
	}
}

func TestRun_NotEnoughData(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	seedHistory(t, store, 5)

	opts := DefaultOptions()
	opts.To = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err = Run(store, artifact.NewFSStore(t.TempDir()), opts)
	if err == nil {
		t.Fatal("expected an error with too little history")
	}
	if !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("expected ErrNotEnoughData, got %v", err)
	}
}

func TestRun_EmptyHistory(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	_, err = Run(store, artifact.NewFSStore(t.TempDir()), DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for empty history")
	}
}

func TestAccuracyAndLogLoss(t *testing.T) {
	stub := model.StubModel{}
	x := [][]float64{{0}, {1}, {2}}

	// Stub always argmaxes to class 0.
	if got := accuracy(stub, x, []int{0, 0, 0}); got != 1 {
		t.Errorf("accuracy %v, want 1", got)
	}
	if got := accuracy(stub, x, []int{1, 2, 1}); got != 0 {
		t.Errorf("accuracy %v, want 0", got)
	}

	// Log loss of the stub on class 0 is -ln(0.34).
	want := 1.0788096613719298
	if got := logLoss(stub, x, []int{0, 0, 0}); fmt.Sprintf("%.6f", got) != fmt.Sprintf("%.6f", want) {
		t.Errorf("log loss %v, want %v", got, want)
	}
}
