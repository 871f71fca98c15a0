// Package artifact persists trained model versions. A version is a
// directory named gbdt_<YYYYMMDD_HHMMSS> holding the serialized model
// and a metadata file; the predictor only needs "latest" and "load".
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"footypredict/internal/model"

	"github.com/rs/zerolog/log"
)

const (
	versionPrefix = "gbdt_"
	versionFormat = "20060102_150405"
	modelFile     = "model.json"
	metadataFile  = "metadata.json"
)

// ErrNoArtifacts reports that no trained version exists yet.
var ErrNoArtifacts = errors.New("no model artifacts found")

// Metrics captures the holdout evaluation persisted with a version.
type Metrics struct {
	Accuracy          float64            `json:"accuracy"`
	LogLoss           float64            `json:"log_loss"`
	TrainingSamples   int                `json:"training_samples"`
	HoldoutSamples    int                `json:"holdout_samples"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// Metadata describes one persisted model version.
type Metadata struct {
	Version        string    `json:"version"`
	ModelKind      string    `json:"model_kind"`
	TrainedAt      time.Time `json:"trained_at"`
	FeatureColumns []string  `json:"feature_columns"`
	Metrics        Metrics   `json:"metrics"`
}

// Store is the port the predictor and trainer depend on, so the
// filesystem layout can be swapped for a remote store without touching
// their control flow.
type Store interface {
	ListVersions() ([]string, error)
	Latest() (string, error)
	Load(version string) (*model.Ensemble, Metadata, error)
	Save(e *model.Ensemble, meta Metadata) (string, error)
}

// FSStore keeps one directory per version under a base directory.
type FSStore struct {
	baseDir string
	now     func() time.Time
}

func NewFSStore(baseDir string) *FSStore {
	return &FSStore{baseDir: baseDir, now: time.Now}
}

// ListVersions returns all version names sorted ascending; timestamp
// naming makes lexical order chronological.
func (s *FSStore) ListVersions() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoArtifacts
		}
		return nil, fmt.Errorf("list model versions: %w", err)
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), versionPrefix) {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return nil, ErrNoArtifacts
	}
	sort.Strings(versions)
	return versions, nil
}

// Latest returns the most recently created version name.
func (s *FSStore) Latest() (string, error) {
	versions, err := s.ListVersions()
	if err != nil {
		return "", err
	}
	return versions[len(versions)-1], nil
}

// Load deserializes a version's model and metadata. A missing or
// unreadable metadata file is tolerated: the model's own column list is
// authoritative enough to serve.
func (s *FSStore) Load(version string) (*model.Ensemble, Metadata, error) {
	dir := filepath.Join(s.baseDir, version)

	data, err := os.ReadFile(filepath.Join(dir, modelFile))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read model %s: %w", version, err)
	}
	var e model.Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, Metadata{}, fmt.Errorf("parse model %s: %w", version, err)
	}
	if e.NumClasses != 3 || len(e.Base) != e.NumClasses {
		return nil, Metadata{}, fmt.Errorf("model %s is malformed: %d classes, %d base scores",
			version, e.NumClasses, len(e.Base))
	}

	meta := Metadata{Version: version, ModelKind: e.Kind(), FeatureColumns: e.Columns}
	if raw, err := os.ReadFile(filepath.Join(dir, metadataFile)); err == nil {
		if err := json.Unmarshal(raw, &meta); err != nil {
			log.Warn().Err(err).Str("version", version).Msg("metadata unreadable, using model columns")
			meta = Metadata{Version: version, ModelKind: e.Kind(), FeatureColumns: e.Columns}
		} else {
			meta.Version = version
		}
	}
	return &e, meta, nil
}

// Save persists a new version and returns its timestamp-derived name.
func (s *FSStore) Save(e *model.Ensemble, meta Metadata) (string, error) {
	version := versionPrefix + s.now().UTC().Format(versionFormat)
	dir := filepath.Join(s.baseDir, version)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create version dir: %w", err)
	}

	meta.Version = version
	meta.ModelKind = e.Kind()
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = s.now().UTC()
	}
	if len(meta.FeatureColumns) == 0 {
		meta.FeatureColumns = e.Columns
	}

	modelData, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal model: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, modelFile), modelData, 0o600); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metaData, 0o600); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	log.Info().Str("version", version).Int("columns", len(meta.FeatureColumns)).Msg("model artifact saved")
	return version, nil
}
