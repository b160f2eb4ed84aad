package models

import (
	"time"
)

// Settings keys stored in the settings table and synced inside the payload.
const (
	SettingAutoSync = "autoSync"
	SettingTheme    = "theme"
)

// SyncPayload is the full-state snapshot exchanged with the remote store.
// UpdatedAt is stamped at assembly time on the client, never rewritten by
// the remote adapter, and is used only for conflict comparison.
type SyncPayload struct {
	Progress  map[string][]string          `json:"progress"`
	Notes     map[string]map[string]string `json:"notes"`
	Settings  map[string]string            `json:"settings"`
	Playlist  []PlaylistItem               `json:"playlist,omitempty"`
	UpdatedAt time.Time                    `json:"updatedAt"`
}

// EmptyPayload returns the defined empty-shape payload, used when the
// remote document does not exist or cannot be parsed.
func EmptyPayload() SyncPayload {
	return SyncPayload{
		Progress: map[string][]string{},
		Notes:    map[string]map[string]string{},
		Settings: map[string]string{},
	}
}

// PlaylistItem is one ordered entry in the learning playlist.
type PlaylistItem struct {
	RoadmapID string `json:"roadmapId"`
	Label     string `json:"label"`
	URL       string `json:"url,omitempty"`
}

// PendingSyncRecord is one entry in the durable offline queue.
// ID is assigned by the local database; Timestamp is the enqueue time in
// epoch millis. Records are full snapshots, so newer records supersede
// older ones and are never merged.
type PendingSyncRecord struct {
	ID        int64       `json:"id"`
	Data      SyncPayload `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// LinkType classifies a directed card link.
type LinkType string

const (
	LinkRelated LinkType = "related"
	LinkParent  LinkType = "parent"
	LinkChild   LinkType = "child"
)

// Position is a card's location in the knowledge graph view.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Link is a directed, labeled edge owned by its source card. Hidden links
// are excluded from the default graph visualization. TargetID carries no
// referential integrity; dangling links are filtered at read time.
type Link struct {
	TargetID string   `json:"targetId"`
	Type     LinkType `json:"type"`
	Label    string   `json:"label,omitempty"`
	IsHidden bool     `json:"isHidden"`
}

// Card is a node in the knowledge graph. The markdown body is stored
// separately (see card_contents) so editing one body never rewrites the
// whole metadata set.
type Card struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   []string  `json:"summary,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Color     string    `json:"color,omitempty"`
	Position  Position  `json:"position"`
	Links     []Link    `json:"links,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project groups cards inside the knowledge graph.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CardIndex is the card-graph metadata document stored remotely. Content
// bodies live in separate remote objects keyed by card ID.
type CardIndex struct {
	LastModified time.Time          `json:"lastModified"`
	Cards        map[string]Card    `json:"cards"`
	Projects     map[string]Project `json:"projects,omitempty"`
}

// EmptyCardIndex returns the defined empty-shape card index.
func EmptyCardIndex() CardIndex {
	return CardIndex{
		Cards:    map[string]Card{},
		Projects: map[string]Project{},
	}
}
