// Package history persists session records and a little dispatch state
// in a local badger store.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"go.mgrd.me/perq/internal/types"
)

// DefaultTTL is how long session records stay queryable.
const DefaultTTL = 30 * 24 * time.Hour

// tabTTL bounds how long a remembered tab steers dispatches. Target ids
// do not survive a browser restart anyway.
const tabTTL = 12 * time.Hour

const (
	sessionPrefix = "session/"
	lastTabKey    = "tab/last"
)

// Store is the on-disk journal.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens or creates the store at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores one finished session record.
func (s *Store) Append(rec *types.SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session record has no id")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(sessionPrefix+rec.ID), data).WithTTL(DefaultTTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store session record: %w", err)
	}
	return nil
}

// Recent returns up to n session records, newest first.
func (s *Store) Recent(n int) ([]types.SessionRecord, error) {
	var records []types.SessionRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec types.SessionRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					// One bad record should not hide the rest.
					s.log.Warn("skip malformed session record", "error", err)
					return nil
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan session records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// LastTab returns the target id of the tab the last dispatch used.
func (s *Store) LastTab() (string, bool) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastTabKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		s.log.Warn("read last tab", "error", err)
		return "", false
	}
	return id, id != ""
}

// RememberTab records the tab a dispatch just used.
func (s *Store) RememberTab(id string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(lastTabKey), []byte(id)).WithTTL(tabTTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		s.log.Warn("remember tab", "error", err)
	}
}
