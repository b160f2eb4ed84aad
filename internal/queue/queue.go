// Package queue implements the durable offline queue: a crash-surviving
// log of pending sync payloads written while disconnected or after a
// failed remote write. Records are full-state snapshots, so only the
// newest matters; older records are superseded, never merged.
package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus/trail/internal/models"
)

// Init creates the pending_sync table if it doesn't exist.
func Init(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS pending_sync (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			data      JSON NOT NULL,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pending_sync_ts ON pending_sync(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("init pending_sync: %w", err)
	}
	return nil
}

// Queue is the durable offline queue. It is shared by the foreground and
// the background agent; every operation is a self-contained transaction,
// so no cross-context locking is needed beyond what SQLite provides.
type Queue struct {
	conn *sql.DB
}

// New wraps an open database connection. Init must have run first.
func New(conn *sql.DB) *Queue {
	return &Queue{conn: conn}
}

// Enqueue appends a pending record with a fresh timestamp. No
// deduplication or compaction is attempted; accumulation is bounded only
// by drains.
func (q *Queue) Enqueue(payload models.SyncPayload) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	res, err := q.conn.Exec(`
		INSERT INTO pending_sync (data, timestamp) VALUES (?, ?)
	`, string(data), time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return res.LastInsertId()
}

// Count returns the number of pending records (UI badge only).
func (q *Queue) Count() (int64, error) {
	var count int64
	err := q.conn.QueryRow(`SELECT COUNT(*) FROM pending_sync`).Scan(&count)
	return count, err
}

// All returns every pending record in enqueue order.
func (q *Queue) All() ([]models.PendingSyncRecord, error) {
	rows, err := q.conn.Query(`SELECT id, data, timestamp FROM pending_sync ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var records []models.PendingSyncRecord
	for rows.Next() {
		var rec models.PendingSyncRecord
		var data string
		if err := rows.Scan(&rec.ID, &data, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
			return nil, fmt.Errorf("unmarshal pending %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DrainLatest selects the record with the maximum timestamp (ties broken
// by highest id), clears the entire queue, and returns the record. Older
// records are discarded without replay, which is correct only because
// payloads are full snapshots. Returns nil when the queue is empty.
func (q *Queue) DrainLatest() (*models.PendingSyncRecord, error) {
	tx, err := q.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var rec models.PendingSyncRecord
	var data string
	err = tx.QueryRow(`
		SELECT id, data, timestamp FROM pending_sync
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`).Scan(&rec.ID, &data, &rec.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal latest %d: %w", rec.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM pending_sync`); err != nil {
		return nil, fmt.Errorf("clear after drain: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drain: %w", err)
	}
	return &rec, nil
}

// Clear empties the queue unconditionally.
func (q *Queue) Clear() error {
	_, err := q.conn.Exec(`DELETE FROM pending_sync`)
	if err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}
