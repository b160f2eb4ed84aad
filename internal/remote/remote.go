// Package remote talks to the user's cloud drive. The progress payload is
// a single JSON document; the card graph is a metadata document plus one
// text object per card body.
package remote

import (
	"errors"

	"github.com/marcus/trail/internal/models"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Store is the capability interface for the remote file store. Implemented
// by *Client; injected at startup so tests can substitute doubles.
//
// Writes are whole-document overwrites with no concurrency token: last
// writer wins. Loads never fail for "not found" or a corrupt document and
// instead return the defined empty shapes.
type Store interface {
	// SavePayload overwrites the progress/notes/settings document.
	// The payload's UpdatedAt is written verbatim, never restamped.
	SavePayload(payload models.SyncPayload) error
	// LoadPayload fetches the progress document, or the empty payload if
	// it does not exist or cannot be parsed.
	LoadPayload() (models.SyncPayload, error)

	// SaveCardIndex overwrites the card metadata document. LastModified is
	// written verbatim, matching SavePayload's rule.
	SaveCardIndex(index models.CardIndex) error
	// LoadCardIndex fetches the card metadata document, or the empty index.
	LoadCardIndex() (models.CardIndex, error)

	// SaveCardContent writes one card's markdown body.
	SaveCardContent(cardID, body string) error
	// LoadCardContent fetches one card's markdown body, or "" if missing.
	LoadCardContent(cardID string) (string, error)

	// Ping verifies reachability without credentials.
	Ping() error
}

// UserInfo describes the signed-in account.
type UserInfo struct {
	UserID string
	Email  string
}

// SessionProvider is the capability interface for the authenticated
// session. The background agent never receives one: credentials stay in
// the foreground.
type SessionProvider interface {
	IsSignedIn() bool
	APIKey() string
	User() (UserInfo, bool)
}
