package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SetNote writes the free-text note for a roadmap node. An empty body
// deletes the note.
func (s *Store) SetNote(roadmapID, nodeID, body string) error {
	if body == "" {
		return s.DeleteNote(roadmapID, nodeID)
	}
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT INTO notes (roadmap_id, node_id, body, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(roadmap_id, node_id) DO UPDATE SET
				body = excluded.body,
				updated_at = excluded.updated_at
		`, roadmapID, nodeID, body, time.Now())
		if err != nil {
			return fmt.Errorf("set note: %w", err)
		}
		return s.touchLocalModified()
	})
}

// GetNote returns the note for a node, or "" when none exists.
func (s *Store) GetNote(roadmapID, nodeID string) (string, error) {
	var body string
	err := s.conn.QueryRow(`
		SELECT body FROM notes WHERE roadmap_id = ? AND node_id = ?
	`, roadmapID, nodeID).Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return body, err
}

// DeleteNote removes the note for a node.
func (s *Store) DeleteNote(roadmapID, nodeID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`DELETE FROM notes WHERE roadmap_id = ? AND node_id = ?`, roadmapID, nodeID)
		if err != nil {
			return err
		}
		return s.touchLocalModified()
	})
}

// GetAllNotes returns notes keyed by roadmap ID then node ID.
func (s *Store) GetAllNotes() (map[string]map[string]string, error) {
	rows, err := s.conn.Query(`SELECT roadmap_id, node_id, body FROM notes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make(map[string]map[string]string)
	for rows.Next() {
		var roadmapID, nodeID, body string
		if err := rows.Scan(&roadmapID, &nodeID, &body); err != nil {
			return nil, err
		}
		if notes[roadmapID] == nil {
			notes[roadmapID] = make(map[string]string)
		}
		notes[roadmapID][nodeID] = body
	}
	return notes, rows.Err()
}

// GetRoadmapNotes returns all notes for one roadmap keyed by node ID.
func (s *Store) GetRoadmapNotes(roadmapID string) (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT node_id, body FROM notes WHERE roadmap_id = ?`, roadmapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make(map[string]string)
	for rows.Next() {
		var nodeID, body string
		if err := rows.Scan(&nodeID, &body); err != nil {
			return nil, err
		}
		notes[nodeID] = body
	}
	return notes, rows.Err()
}
