package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"footypredict/internal/model"
)

func trainedEnsemble(t *testing.T) *model.Ensemble {
	t.Helper()
	x := [][]float64{{0, 1}, {1, 0}, {2, 1}, {0, 2}, {1, 1}, {2, 0}}
	y := []int{0, 1, 2, 0, 1, 2}
	e, err := model.Fit(x, y, []string{"a", "b"}, model.FitOptions{Rounds: 5, LearningRate: 0.1})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return e
}

func TestFSStore_NoArtifacts(t *testing.T) {
	s := NewFSStore(filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := s.Latest(); !errors.Is(err, ErrNoArtifacts) {
		t.Errorf("expected ErrNoArtifacts for missing dir, got %v", err)
	}

	s = NewFSStore(t.TempDir())
	if _, err := s.ListVersions(); !errors.Is(err, ErrNoArtifacts) {
		t.Errorf("expected ErrNoArtifacts for empty dir, got %v", err)
	}
}

func TestFSStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewFSStore(t.TempDir())
	e := trainedEnsemble(t)

	meta := Metadata{
		FeatureColumns: []string{"a", "b"},
		Metrics: Metrics{
			Accuracy:          0.61,
			LogLoss:           0.97,
			TrainingSamples:   800,
			HoldoutSamples:    200,
			FeatureImportance: map[string]float64{"a": 0.7, "b": 0.3},
		},
	}

	version, err := s.Save(e, meta)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, loadedMeta, err := s.Load(version)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loadedMeta.Version != version {
		t.Errorf("metadata version %q, want %q", loadedMeta.Version, version)
	}
	if loadedMeta.Metrics.Accuracy != 0.61 {
		t.Errorf("accuracy %v, want 0.61", loadedMeta.Metrics.Accuracy)
	}
	if len(loadedMeta.FeatureColumns) != 2 {
		t.Errorf("feature columns %v", loadedMeta.FeatureColumns)
	}

	in := []float64{1, 1}
	a, b := e.PredictProba(in), loaded.PredictProba(in)
	for k := range a {
		if a[k] != b[k] {
			t.Errorf("predictions differ after round trip: %v vs %v", a, b)
		}
	}
}

func TestFSStore_LatestPicksNewest(t *testing.T) {
	s := NewFSStore(t.TempDir())
	e := trainedEnsemble(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		stamp := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return stamp }
		if _, err := s.Save(e, Metadata{}); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest != "gbdt_20260301_120000" {
		t.Errorf("latest %q, want gbdt_20260301_120000", latest)
	}

	versions, err := s.ListVersions()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(versions) != 3 {
		t.Errorf("expected 3 versions, got %d", len(versions))
	}
}

func TestFSStore_CorruptModel(t *testing.T) {
	dir := t.TempDir()
	version := "gbdt_20260101_000000"
	if err := os.MkdirAll(filepath.Join(dir, version), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, version, "model.json"), []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFSStore(dir)
	if _, _, err := s.Load(version); err == nil {
		t.Error("expected error loading corrupt model")
	}
}

func TestFSStore_MissingMetadataTolerated(t *testing.T) {
	s := NewFSStore(t.TempDir())
	e := trainedEnsemble(t)

	version, err := s.Save(e, Metadata{})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.Remove(filepath.Join(s.baseDir, version, metadataFile)); err != nil {
		t.Fatal(err)
	}

	_, meta, err := s.Load(version)
	if err != nil {
		t.Fatalf("load without metadata failed: %v", err)
	}
	if len(meta.FeatureColumns) != 2 {
		t.Errorf("columns should come from the model itself, got %v", meta.FeatureColumns)
	}
}
