// Package audit records operator actions taken through the console:
// template saves, manual dispatches, configuration changes, channel tests,
// and exports. Entries are append-only and kept locally in BoltDB so the
// trail survives backend outages.
package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketAudit = []byte("audit")

// Entry is one recorded operator action.
type Entry struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is an append-only operator action log.
type Log struct {
	db *bolt.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAudit)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit bucket: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends an entry. ID and CreatedAt are assigned here; callers
// only describe the action.
func (l *Log) Record(ctx context.Context, operator, action, entity, entityID, details string) error {
	e := Entry{
		ID:        uuid.New().String(),
		Operator:  operator,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketAudit)

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}
		return bucket.Put(makeIndexKey(e.CreatedAt, e.ID), data)
	})
}

// ListFilter narrows a List call. Zero values mean no constraint.
type ListFilter struct {
	Operator string
	Action   string
	Limit    int
	Offset   int
}

// List returns entries newest first.
func (l *Log) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var entries []Entry

	err := l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketAudit)
		c := bucket.Cursor()

		skipped := 0
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}

			if filter.Operator != "" && e.Operator != filter.Operator {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}

			entries = append(entries, e)
			if filter.Limit > 0 && len(entries) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return entries, err
}

// Prune deletes entries older than the cutoff and reports how many went.
func (l *Log) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var count int

	err := l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketAudit)
		c := bucket.Cursor()

		var stale [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				stale = append(stale, k)
				continue
			}
			if e.CreatedAt.Before(cutoff) {
				stale = append(stale, k)
			}
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			count++
		}
		return nil
	})

	return count, err
}

// makeIndexKey builds a timestamp-prefixed key so cursor order is
// chronological and the uuid suffix keeps same-instant entries distinct.
func makeIndexKey(ts time.Time, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(ts.UnixNano()))
	return append(key, id...)
}
