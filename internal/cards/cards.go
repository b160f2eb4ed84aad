// Package cards manages the knowledge-card graph: metadata cards with
// typed links plus a markdown content body per card. Links are soft
// references; deleting a card leaves inbound links dangling and readers
// filter them out.
package cards

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/remote"
	"github.com/marcus/trail/internal/store"
)

// Service wraps the store's card tables with graph-level operations.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Create inserts a new card with a generated id.
func (s *Service) Create(title, summary string, tags []string) (*models.Card, error) {
	card := &models.Card{
		ID:    uuid.New().String(),
		Title: title,
		Tags:  tags,
	}
	if summary != "" {
		card.Summary = []string{summary}
	}
	if err := s.store.PutCard(card); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return s.store.GetCard(card.ID)
}

// Get returns a single card by id.
func (s *Service) Get(id string) (*models.Card, error) {
	return s.store.GetCard(id)
}

// List returns all cards sorted by title.
func (s *Service) List() ([]models.Card, error) {
	cards, err := s.store.ListCards()
	if err != nil {
		return nil, err
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Title < cards[j].Title })
	return cards, nil
}

// Delete removes a card and its content. Inbound links from other cards
// stay put and dangle; VisibleLinks hides them.
func (s *Service) Delete(id string) error {
	return s.store.DeleteCard(id)
}

// Link adds or replaces an outbound link. Unknown target ids are accepted:
// the target may arrive in a later card sync.
func (s *Service) Link(fromID, targetID string, linkType models.LinkType, label string) error {
	card, err := s.store.GetCard(fromID)
	if err != nil {
		return err
	}
	link := models.Link{TargetID: targetID, Type: linkType, Label: label}
	replaced := false
	for i, l := range card.Links {
		if l.TargetID == targetID && l.Type == linkType {
			card.Links[i] = link
			replaced = true
			break
		}
	}
	if !replaced {
		card.Links = append(card.Links, link)
	}
	return s.store.PutCard(card)
}

// Unlink removes an outbound link of the given type.
func (s *Service) Unlink(fromID, targetID string, linkType models.LinkType) error {
	card, err := s.store.GetCard(fromID)
	if err != nil {
		return err
	}
	kept := card.Links[:0]
	for _, l := range card.Links {
		if l.TargetID == targetID && l.Type == linkType {
			continue
		}
		kept = append(kept, l)
	}
	card.Links = kept
	return s.store.PutCard(card)
}

// VisibleLinks resolves a card's outbound links against the current card
// set, dropping hidden links and links whose target no longer exists.
func (s *Service) VisibleLinks(card *models.Card) ([]models.Link, error) {
	cards, err := s.store.ListCards()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(cards))
	for _, c := range cards {
		known[c.ID] = true
	}
	var out []models.Link
	for _, l := range card.Links {
		if l.IsHidden || !known[l.TargetID] {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// SetContent stores the card's markdown body.
func (s *Service) SetContent(id, body string) error {
	if _, err := s.store.GetCard(id); err != nil {
		return err
	}
	return s.store.SetCardContent(id, body)
}

// Content returns the card's markdown body, empty when none exists.
func (s *Service) Content(id string) (string, error) {
	return s.store.GetCardContent(id)
}

// Push uploads the full card graph: one index document, then one content
// object per card. The index is written last so a reader never sees index
// entries whose content upload had not started.
func (s *Service) Push(rm remote.Store) error {
	cards, err := s.store.ListCards()
	if err != nil {
		return err
	}
	projects, err := s.store.ListProjects()
	if err != nil {
		return err
	}
	contents, err := s.store.GetAllCardContents()
	if err != nil {
		return err
	}

	for id, body := range contents {
		if err := rm.SaveCardContent(id, body); err != nil {
			return fmt.Errorf("upload content for %s: %w", id, err)
		}
	}

	index := models.EmptyCardIndex()
	index.LastModified = time.Now().UTC().Truncate(time.Second)
	for _, c := range cards {
		index.Cards[c.ID] = c
	}
	for _, p := range projects {
		index.Projects[p.ID] = p
	}
	if err := rm.SaveCardIndex(index); err != nil {
		return fmt.Errorf("upload card index: %w", err)
	}
	return s.store.SetCardSynced(index.LastModified)
}

// Pull downloads the index and then each card's content sequentially. A
// single failed content fetch does not abort the pull; that card simply
// gets an empty body until the next sync.
func (s *Service) Pull(rm remote.Store) (int, error) {
	index, err := rm.LoadCardIndex()
	if err != nil {
		return 0, fmt.Errorf("download card index: %w", err)
	}

	contents := make(map[string]string, len(index.Cards))
	for _, card := range index.Cards {
		body, err := rm.LoadCardContent(card.ID)
		if err != nil {
			slog.Warn("card content fetch failed", "card", card.ID, "error", err)
			body = ""
		}
		contents[card.ID] = body
	}

	if err := s.store.ReplaceCardGraph(index, contents); err != nil {
		return 0, fmt.Errorf("replace card graph: %w", err)
	}
	return len(index.Cards), nil
}
