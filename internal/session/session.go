// Package session manages the authenticated drive session. Credentials
// live at ~/.config/trail/auth.json; the TRAIL_AUTH_KEY env var overrides
// the stored key for scripting.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcus/trail/internal/config"
	"github.com/marcus/trail/internal/remote"
)

const authFile = "auth.json"

// Credentials stores authentication state at ~/.config/trail/auth.json.
type Credentials struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ServerURL string `json:"server_url"`
	ExpiresAt string `json:"expires_at"`
}

// Load reads credentials from auth.json, or nil if not signed in.
func Load() (*Credentials, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, authFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Save writes credentials to auth.json (0600 perms).
func Save(creds *Credentials) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, authFile), data, 0600)
}

// Clear removes the auth.json file (sign-out).
func Clear() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, authFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Provider implements remote.SessionProvider over the auth.json file.
type Provider struct{}

var _ remote.SessionProvider = Provider{}

// APIKey returns the API key. Priority: TRAIL_AUTH_KEY env > auth.json.
func (Provider) APIKey() string {
	if v := os.Getenv("TRAIL_AUTH_KEY"); v != "" {
		return v
	}
	creds, err := Load()
	if err == nil && creds != nil {
		return creds.APIKey
	}
	return ""
}

// IsSignedIn returns true if an API key is available.
func (p Provider) IsSignedIn() bool {
	return p.APIKey() != ""
}

// User returns the signed-in account info when known.
func (Provider) User() (remote.UserInfo, bool) {
	creds, err := Load()
	if err != nil || creds == nil {
		return remote.UserInfo{}, false
	}
	return remote.UserInfo{UserID: creds.UserID, Email: creds.Email}, true
}

// SignIn stores the credentials obtained from a completed device auth
// poll.
func SignIn(poll *remote.LoginPollResponse, serverURL string) (*Credentials, error) {
	if poll == nil || poll.APIKey == nil {
		return nil, fmt.Errorf("login poll response missing api key")
	}
	creds := &Credentials{
		APIKey:    *poll.APIKey,
		ServerURL: serverURL,
	}
	if poll.UserID != nil {
		creds.UserID = *poll.UserID
	}
	if poll.Email != nil {
		creds.Email = *poll.Email
	}
	if poll.ExpiresAt != nil {
		creds.ExpiresAt = *poll.ExpiresAt
	}
	if err := Save(creds); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	return creds, nil
}
