package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	stateBucket   = []byte("state")
	secretsBucket = []byte("secrets")

	historyKey  = []byte("history")
	lastSaveKey = []byte("last_save")
)

// ErrNotFound is returned for keys that were never written.
var ErrNotFound = errors.New("not found")

// Store is the process-wide key/value state. Every call is its own
// transaction; nothing is cached in memory.
type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{stateBucket, secretsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Secret returns a copy of the value stored under key in the secrets bucket.
func (s *Store) Secret(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(secretsBucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

func (s *Store) PutSecret(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Put([]byte(key), value)
	})
}

func (s *Store) DeleteSecret(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Delete([]byte(key))
	})
}

// SetLastSave replaces the recorded outcome.
func (s *Store) SetLastSave(outcome SaveOutcome) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(outcome)
		if err != nil {
			return err
		}
		return tx.Bucket(stateBucket).Put(lastSaveKey, data)
	})
}

// LastSave returns the most recent outcome or ErrNotFound.
func (s *Store) LastSave() (*SaveOutcome, error) {
	var outcome SaveOutcome
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(stateBucket).Get(lastSaveKey)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &outcome)
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

func readHistory(tx *bolt.Tx) ([]HistoryEntry, error) {
	data := tx.Bucket(stateBucket).Get(historyKey)
	if data == nil {
		return nil, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return entries, nil
}

func writeHistory(tx *bolt.Tx, entries []HistoryEntry) error {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return tx.Bucket(stateBucket).Put(historyKey, data)
}
