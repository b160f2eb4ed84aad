package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus/trail/internal/models"
)

// PutCard inserts or replaces a card's metadata and its outbound links.
// Link targets are not validated; dangling links are allowed.
func (s *Store) PutCard(card *models.Card) error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		now := time.Now().UTC().Truncate(time.Second)
		if card.CreatedAt.IsZero() {
			card.CreatedAt = now
		}
		card.UpdatedAt = now

		summaryJSON, _ := json.Marshal(card.Summary)
		tagsJSON, _ := json.Marshal(card.Tags)

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO cards (id, title, summary, tags, color, pos_x, pos_y, pos_z, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, card.ID, card.Title, string(summaryJSON), string(tagsJSON), card.Color,
			card.Position.X, card.Position.Y, card.Position.Z, card.CreatedAt, card.UpdatedAt)
		if err != nil {
			return fmt.Errorf("put card: %w", err)
		}

		// A card owns its links: replace the full outbound set
		if _, err := tx.Exec(`DELETE FROM card_links WHERE card_id = ?`, card.ID); err != nil {
			return fmt.Errorf("clear links: %w", err)
		}
		for _, link := range card.Links {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO card_links (card_id, target_id, type, label, is_hidden)
				VALUES (?, ?, ?, ?, ?)
			`, card.ID, link.TargetID, string(link.Type), link.Label, boolToInt(link.IsHidden)); err != nil {
				return fmt.Errorf("put link: %w", err)
			}
		}

		if _, err := tx.Exec(`UPDATE card_state SET local_last_modified = ? WHERE id = 1`, time.Now()); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetCard retrieves a card with its outbound links.
func (s *Store) GetCard(id string) (*models.Card, error) {
	var card models.Card
	var summaryJSON, tagsJSON string

	err := s.conn.QueryRow(`
		SELECT id, title, summary, tags, color, pos_x, pos_y, pos_z, created_at, updated_at
		FROM cards WHERE id = ?
	`, id).Scan(&card.ID, &card.Title, &summaryJSON, &tagsJSON, &card.Color,
		&card.Position.X, &card.Position.Y, &card.Position.Z, &card.CreatedAt, &card.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("card not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(summaryJSON), &card.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &card.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}

	links, err := s.getLinks(id)
	if err != nil {
		return nil, err
	}
	card.Links = links

	return &card, nil
}

func (s *Store) getLinks(cardID string) ([]models.Link, error) {
	rows, err := s.conn.Query(`
		SELECT target_id, type, label, is_hidden FROM card_links WHERE card_id = ? ORDER BY target_id
	`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		var hidden int
		if err := rows.Scan(&link.TargetID, (*string)(&link.Type), &link.Label, &hidden); err != nil {
			return nil, err
		}
		link.IsHidden = hidden != 0
		links = append(links, link)
	}
	return links, rows.Err()
}

// ListCards returns all cards with links, ordered by creation time.
func (s *Store) ListCards() ([]models.Card, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, summary, tags, color, pos_x, pos_y, pos_z, created_at, updated_at
		FROM cards ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var card models.Card
		var summaryJSON, tagsJSON string
		if err := rows.Scan(&card.ID, &card.Title, &summaryJSON, &tagsJSON, &card.Color,
			&card.Position.X, &card.Position.Y, &card.Position.Z, &card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(summaryJSON), &card.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &card.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cards {
		links, err := s.getLinks(cards[i].ID)
		if err != nil {
			return nil, err
		}
		cards[i].Links = links
	}
	return cards, nil
}

// DeleteCard removes a card, its links, and its content. Links pointing at
// the deleted card from other cards are left dangling on purpose.
func (s *Store) DeleteCard(id string) error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.Exec(`DELETE FROM cards WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("card not found: %s", id)
		}
		if _, err := tx.Exec(`DELETE FROM card_links WHERE card_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM card_contents WHERE card_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE card_state SET local_last_modified = ? WHERE id = 1`, time.Now()); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// SetCardContent writes a card's markdown body.
func (s *Store) SetCardContent(cardID, body string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			INSERT OR REPLACE INTO card_contents (card_id, body) VALUES (?, ?)
		`, cardID, body)
		if err != nil {
			return fmt.Errorf("set card content: %w", err)
		}
		return s.touchCardModified()
	})
}

// GetCardContent returns a card's markdown body, or "" when none exists.
func (s *Store) GetCardContent(cardID string) (string, error) {
	var body string
	err := s.conn.QueryRow(`SELECT body FROM card_contents WHERE card_id = ?`, cardID).Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return body, err
}

// GetAllCardContents returns every stored body keyed by card ID.
func (s *Store) GetAllCardContents() (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT card_id, body FROM card_contents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contents := make(map[string]string)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		contents[id] = body
	}
	return contents, rows.Err()
}

// PutProject inserts or replaces a project.
func (s *Store) PutProject(p *models.Project) error {
	return s.withWriteLock(func() error {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC().Truncate(time.Second)
		}
		_, err := s.conn.Exec(`
			INSERT OR REPLACE INTO projects (id, name, created_at) VALUES (?, ?, ?)
		`, p.ID, p.Name, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("put project: %w", err)
		}
		return s.touchCardModified()
	})
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects() ([]models.Project, error) {
	rows, err := s.conn.Query(`SELECT id, name, created_at FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ReplaceCardGraph overwrites the whole card graph (metadata, links,
// projects, and bodies) with the given index and contents. Used when
// taking the remote card graph wholesale.
func (s *Store) ReplaceCardGraph(index models.CardIndex, contents map[string]string) error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		for _, table := range []string{"cards", "card_links", "card_contents", "projects"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		for _, card := range index.Cards {
			summaryJSON, _ := json.Marshal(card.Summary)
			tagsJSON, _ := json.Marshal(card.Tags)
			if _, err := tx.Exec(`
				INSERT INTO cards (id, title, summary, tags, color, pos_x, pos_y, pos_z, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, card.ID, card.Title, string(summaryJSON), string(tagsJSON), card.Color,
				card.Position.X, card.Position.Y, card.Position.Z, card.CreatedAt, card.UpdatedAt); err != nil {
				return fmt.Errorf("restore card: %w", err)
			}
			for _, link := range card.Links {
				if _, err := tx.Exec(`
					INSERT OR REPLACE INTO card_links (card_id, target_id, type, label, is_hidden)
					VALUES (?, ?, ?, ?, ?)
				`, card.ID, link.TargetID, string(link.Type), link.Label, boolToInt(link.IsHidden)); err != nil {
					return fmt.Errorf("restore link: %w", err)
				}
			}
		}
		for id, body := range contents {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO card_contents (card_id, body) VALUES (?, ?)
			`, id, body); err != nil {
				return fmt.Errorf("restore content: %w", err)
			}
		}
		for _, p := range index.Projects {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO projects (id, name, created_at) VALUES (?, ?, ?)
			`, p.ID, p.Name, p.CreatedAt); err != nil {
				return fmt.Errorf("restore project: %w", err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE card_state SET local_last_modified = NULL, last_synced_at = ? WHERE id = 1
		`, index.LastModified); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
