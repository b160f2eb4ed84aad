package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/trail/internal/models"
)

// SyncMarks holds the locally tracked sync markers for the progress
// payload. LocalLastModified moves on every mutation; LastSyncedAt moves
// on every successful remote write or download.
type SyncMarks struct {
	LocalLastModified *time.Time
	LastSyncedAt      *time.Time
	LastSyncError     string
}

// touchLocalModified advances the local modification marker. Callers must
// hold the write lock.
func (s *Store) touchLocalModified() error {
	_, err := s.conn.Exec(`UPDATE sync_state SET local_last_modified = ? WHERE id = 1`, time.Now())
	return err
}

// GetSyncMarks returns the current sync markers.
func (s *Store) GetSyncMarks() (SyncMarks, error) {
	var marks SyncMarks
	var local, synced sql.NullTime
	err := s.conn.QueryRow(`
		SELECT local_last_modified, last_synced_at, last_sync_error FROM sync_state WHERE id = 1
	`).Scan(&local, &synced, &marks.LastSyncError)
	if err != nil {
		return marks, fmt.Errorf("get sync marks: %w", err)
	}
	if local.Valid {
		marks.LocalLastModified = &local.Time
	}
	if synced.Valid {
		marks.LastSyncedAt = &synced.Time
	}
	return marks, nil
}

// HasPendingLocal reports whether local state has mutations that have not
// been synced since the last successful write.
func (s *Store) HasPendingLocal() (bool, error) {
	marks, err := s.GetSyncMarks()
	if err != nil {
		return false, err
	}
	if marks.LocalLastModified == nil {
		return false, nil
	}
	if marks.LastSyncedAt == nil {
		return true, nil
	}
	return marks.LocalLastModified.After(*marks.LastSyncedAt), nil
}

// SetLastSynced records a successful remote write and clears the error.
func (s *Store) SetLastSynced(t time.Time) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE sync_state SET last_synced_at = ?, last_sync_error = '' WHERE id = 1
		`, t)
		return err
	})
}

// SetSyncError records the user-visible sync failure message.
func (s *Store) SetSyncError(msg string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`UPDATE sync_state SET last_sync_error = ? WHERE id = 1`, msg)
		return err
	})
}

// Snapshot assembles the full-state payload from current local state.
// UpdatedAt is the client clock at assembly time, used only for conflict
// comparison on later loads.
func (s *Store) Snapshot() (models.SyncPayload, error) {
	payload := models.EmptyPayload()

	progress, err := s.GetAllProgress()
	if err != nil {
		return payload, fmt.Errorf("snapshot progress: %w", err)
	}
	notes, err := s.GetAllNotes()
	if err != nil {
		return payload, fmt.Errorf("snapshot notes: %w", err)
	}
	settings, err := s.GetAllSettings()
	if err != nil {
		return payload, fmt.Errorf("snapshot settings: %w", err)
	}
	playlist, err := s.GetPlaylist()
	if err != nil {
		return payload, fmt.Errorf("snapshot playlist: %w", err)
	}

	if len(progress) > 0 {
		payload.Progress = progress
	}
	if len(notes) > 0 {
		payload.Notes = notes
	}
	if len(settings) > 0 {
		payload.Settings = settings
	}
	payload.Playlist = playlist
	payload.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	return payload, nil
}

// ReplaceAll overwrites progress, notes, settings, and playlist wholesale
// with the given payload. Used by the "download from cloud" conflict
// resolution, which bypasses the normal sync path. Afterwards local state
// is considered clean as of the payload's UpdatedAt.
func (s *Store) ReplaceAll(payload models.SyncPayload) error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		for _, table := range []string{"progress", "notes", "settings", "playlist"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		now := time.Now()
		for roadmapID, nodes := range payload.Progress {
			for _, nodeID := range nodes {
				if _, err := tx.Exec(`
					INSERT OR IGNORE INTO progress (roadmap_id, node_id, completed_at) VALUES (?, ?, ?)
				`, roadmapID, nodeID, now); err != nil {
					return fmt.Errorf("restore progress: %w", err)
				}
			}
		}
		for roadmapID, nodeNotes := range payload.Notes {
			for nodeID, body := range nodeNotes {
				if _, err := tx.Exec(`
					INSERT INTO notes (roadmap_id, node_id, body, updated_at) VALUES (?, ?, ?, ?)
				`, roadmapID, nodeID, body, now); err != nil {
					return fmt.Errorf("restore notes: %w", err)
				}
			}
		}
		for key, value := range payload.Settings {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)
			`, key, value); err != nil {
				return fmt.Errorf("restore settings: %w", err)
			}
		}
		for _, item := range payload.Playlist {
			if _, err := tx.Exec(`
				INSERT INTO playlist (roadmap_id, label, url) VALUES (?, ?, ?)
			`, item.RoadmapID, item.Label, item.URL); err != nil {
				return fmt.Errorf("restore playlist: %w", err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE sync_state SET local_last_modified = NULL, last_synced_at = ?, last_sync_error = '' WHERE id = 1
		`, payload.UpdatedAt); err != nil {
			return fmt.Errorf("reset sync marks: %w", err)
		}

		return tx.Commit()
	})
}

// CardMarks holds the card graph's independent sync markers.
type CardMarks struct {
	LocalLastModified *time.Time
	LastSyncedAt      *time.Time
}

// touchCardModified advances the card graph modification marker. Callers
// must hold the write lock.
func (s *Store) touchCardModified() error {
	_, err := s.conn.Exec(`UPDATE card_state SET local_last_modified = ? WHERE id = 1`, time.Now())
	return err
}

// GetCardMarks returns the card graph sync markers.
func (s *Store) GetCardMarks() (CardMarks, error) {
	var marks CardMarks
	var local, synced sql.NullTime
	err := s.conn.QueryRow(`
		SELECT local_last_modified, last_synced_at FROM card_state WHERE id = 1
	`).Scan(&local, &synced)
	if err != nil {
		return marks, fmt.Errorf("get card marks: %w", err)
	}
	if local.Valid {
		marks.LocalLastModified = &local.Time
	}
	if synced.Valid {
		marks.LastSyncedAt = &synced.Time
	}
	return marks, nil
}

// SetCardSynced records a successful card graph write.
func (s *Store) SetCardSynced(t time.Time) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`UPDATE card_state SET last_synced_at = ? WHERE id = 1`, t)
		return err
	})
}
