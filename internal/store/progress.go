package store

import (
	"fmt"
	"sort"
	"time"
)

// CompleteNode marks a roadmap node as completed. Completing an already
// completed node is a no-op.
func (s *Store) CompleteNode(roadmapID, nodeID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT OR IGNORE INTO progress (roadmap_id, node_id, completed_at)
			VALUES (?, ?, ?)
		`, roadmapID, nodeID, time.Now())
		if err != nil {
			return fmt.Errorf("complete node: %w", err)
		}
		return s.touchLocalModified()
	})
}

// UncompleteNode clears the completion mark on a roadmap node.
func (s *Store) UncompleteNode(roadmapID, nodeID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`DELETE FROM progress WHERE roadmap_id = ? AND node_id = ?`, roadmapID, nodeID)
		if err != nil {
			return fmt.Errorf("uncomplete node: %w", err)
		}
		return s.touchLocalModified()
	})
}

// ToggleNode flips a node's completion state and returns the new state.
func (s *Store) ToggleNode(roadmapID, nodeID string) (bool, error) {
	completed, err := s.IsNodeCompleted(roadmapID, nodeID)
	if err != nil {
		return false, err
	}
	if completed {
		return false, s.UncompleteNode(roadmapID, nodeID)
	}
	return true, s.CompleteNode(roadmapID, nodeID)
}

// IsNodeCompleted reports whether a roadmap node is marked completed.
func (s *Store) IsNodeCompleted(roadmapID, nodeID string) (bool, error) {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*) FROM progress WHERE roadmap_id = ? AND node_id = ?
	`, roadmapID, nodeID).Scan(&count)
	return count > 0, err
}

// GetRoadmapProgress returns the completed node IDs for one roadmap,
// sorted for deterministic output.
func (s *Store) GetRoadmapProgress(roadmapID string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT node_id FROM progress WHERE roadmap_id = ?`, roadmapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		nodes = append(nodes, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(nodes)
	return nodes, nil
}

// GetAllProgress returns completed nodes keyed by roadmap ID.
func (s *Store) GetAllProgress() (map[string][]string, error) {
	rows, err := s.conn.Query(`SELECT roadmap_id, node_id FROM progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := make(map[string][]string)
	for rows.Next() {
		var roadmapID, nodeID string
		if err := rows.Scan(&roadmapID, &nodeID); err != nil {
			return nil, err
		}
		progress[roadmapID] = append(progress[roadmapID], nodeID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, nodes := range progress {
		sort.Strings(nodes)
	}
	return progress, nil
}

// ClearRoadmap removes all progress for one roadmap.
func (s *Store) ClearRoadmap(roadmapID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`DELETE FROM progress WHERE roadmap_id = ?`, roadmapID)
		if err != nil {
			return err
		}
		return s.touchLocalModified()
	})
}
