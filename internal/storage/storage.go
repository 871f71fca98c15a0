// Package storage persists ingested matches and odds with BoltDB.
// Matches are keyed by date for efficient chronological range scans;
// odds are keyed by match id and bookmaker so the latest quote per
// bookmaker wins on rewrite.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"footypredict/internal/feed"

	"go.etcd.io/bbolt"
)

const (
	matchesBucket = "matches"
	oddsBucket    = "odds"
)

// Store provides persistent storage for match and odds history.
type Store struct {
	db *bbolt.DB
}

// New opens (creating if needed) the database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "footypredict.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(matchesBucket)); err != nil {
			return fmt.Errorf("create matches bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(oddsBucket)); err != nil {
			return fmt.Errorf("create odds bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func matchKey(m feed.MatchRecord) []byte {
	return []byte(fmt.Sprintf("%s_%012d", m.Date.UTC().Format("20060102"), m.ID))
}

func oddsKey(o feed.OddsRecord) []byte {
	return []byte(fmt.Sprintf("%012d_%s", o.MatchID, o.Bookmaker))
}

// PutMatch stores a finalized match, overwriting any previous copy.
func (s *Store) PutMatch(m feed.MatchRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal match: %w", err)
		}
		return tx.Bucket([]byte(matchesBucket)).Put(matchKey(m), data)
	})
}

// PutOdds stores a bookmaker quote, the latest write per match and
// bookmaker winning.
func (s *Store) PutOdds(o feed.OddsRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal odds: %w", err)
		}
		return tx.Bucket([]byte(oddsBucket)).Put(oddsKey(o), data)
	})
}

// MatchesInRange returns matches played within [start, end], ordered by
// date ascending. Malformed records are skipped.
func (s *Store) MatchesInRange(start, end time.Time) ([]feed.MatchRecord, error) {
	var matches []feed.MatchRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(matchesBucket)).Cursor()

		startKey := []byte(start.UTC().Format("20060102"))
		endKey := []byte(end.UTC().Format("20060102") + "_~")

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var m feed.MatchRecord
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			matches = append(matches, m)
		}
		return nil
	})

	return matches, err
}

// OddsForMatch returns every bookmaker quote recorded for a match.
func (s *Store) OddsForMatch(matchID int64) ([]feed.OddsRecord, error) {
	var odds []feed.OddsRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(oddsBucket)).Cursor()
		prefix := []byte(fmt.Sprintf("%012d_", matchID))

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var o feed.OddsRecord
			if err := json.Unmarshal(v, &o); err != nil {
				continue
			}
			odds = append(odds, o)
		}
		return nil
	})

	return odds, err
}
