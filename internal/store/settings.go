package store

import (
	"database/sql"
	"fmt"

	"github.com/marcus/trail/internal/models"
)

// SetSetting writes one user preference.
func (s *Store) SetSetting(key, value string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)
		`, key, value)
		if err != nil {
			return fmt.Errorf("set setting: %w", err)
		}
		return s.touchLocalModified()
	})
}

// GetSetting returns one preference value, or "" when unset.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetAllSettings returns the flat preference map.
func (s *Store) GetAllSettings() (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// AppendPlaylistItem appends an item to the learning playlist.
func (s *Store) AppendPlaylistItem(item models.PlaylistItem) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT INTO playlist (roadmap_id, label, url) VALUES (?, ?, ?)
		`, item.RoadmapID, item.Label, item.URL)
		if err != nil {
			return fmt.Errorf("append playlist item: %w", err)
		}
		return s.touchLocalModified()
	})
}

// RemovePlaylistItem deletes the playlist entry at the given position.
func (s *Store) RemovePlaylistItem(position int64) error {
	return s.withWriteLock(func() error {
		res, err := s.conn.Exec(`DELETE FROM playlist WHERE position = ?`, position)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("playlist item not found: %d", position)
		}
		return s.touchLocalModified()
	})
}

// RemovePlaylistItemAt deletes the nth playlist entry (1-based display
// order), independent of the underlying position values.
func (s *Store) RemovePlaylistItemAt(index int) error {
	return s.withWriteLock(func() error {
		res, err := s.conn.Exec(`
			DELETE FROM playlist WHERE position = (
				SELECT position FROM playlist ORDER BY position LIMIT 1 OFFSET ?
			)
		`, index-1)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("playlist entry not found: %d", index)
		}
		return s.touchLocalModified()
	})
}

// GetPlaylist returns playlist items in order.
func (s *Store) GetPlaylist() ([]models.PlaylistItem, error) {
	rows, err := s.conn.Query(`SELECT roadmap_id, label, url FROM playlist ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.PlaylistItem
	for rows.Next() {
		var item models.PlaylistItem
		if err := rows.Scan(&item.RoadmapID, &item.Label, &item.URL); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
