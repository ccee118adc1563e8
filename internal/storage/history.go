package storage

import (
	bolt "go.etcd.io/bbolt"
)

// DefaultHistoryLimit is how many entries are retained when no limit is configured.
const DefaultHistoryLimit = 200

// History is a newest-first, capacity-bounded log of summaries.
type History struct {
	store *Store
	limit int
}

func NewHistory(store *Store, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{store: store, limit: limit}
}

// Append prepends entry and drops the oldest entries beyond the limit. A
// stored list that cannot be decoded is replaced rather than blocking appends.
func (h *History) Append(entry HistoryEntry) error {
	return h.store.db.Update(func(tx *bolt.Tx) error {
		entries, err := readHistory(tx)
		if err != nil {
			entries = nil
		}

		out := make([]HistoryEntry, 0, min(len(entries)+1, h.limit))
		out = append(out, entry)
		for _, e := range entries {
			if len(out) == h.limit {
				break
			}
			out = append(out, e)
		}
		return writeHistory(tx, out)
	})
}

// List returns all retained entries, newest first.
func (h *History) List() ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := h.store.db.View(func(tx *bolt.Tx) error {
		var err error
		entries, err = readHistory(tx)
		return err
	})
	return entries, err
}

// Clear empties the log.
func (h *History) Clear() error {
	return h.store.db.Update(func(tx *bolt.Tx) error {
		return writeHistory(tx, nil)
	})
}
