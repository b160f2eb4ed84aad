package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcus/trail/internal/models"
)

// Remote object paths inside the user's drive app folder.
const (
	payloadPath     = "trail/progress.json"
	cardIndexPath   = "trail/cards/index.json"
	cardContentBase = "trail/cards/content/"
)

// Client is an HTTP client for the drive file API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient creates a drive client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Ping hits the /healthz endpoint to verify server reachability.
// No API key required; the background agent uses this as its
// connectivity probe.
func (c *Client) Ping() error {
	req, err := http.NewRequest("GET", c.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz: HTTP %d", resp.StatusCode)
	}
	return nil
}

// SavePayload serializes the payload and overwrites the remote progress
// document. Serialization is deterministic for a given payload (JSON with
// sorted map keys), so writing the same payload twice leaves the document
// byte-identical. UpdatedAt is the caller's value, written verbatim.
func (c *Client) SavePayload(payload models.SyncPayload) error {
	return c.putJSON(payloadPath, payload)
}

// LoadPayload fetches and parses the remote progress document. A missing
// or unparseable document yields the empty payload, never an error: a
// corrupt remote blob must not brick the client.
func (c *Client) LoadPayload() (models.SyncPayload, error) {
	var payload models.SyncPayload
	data, err := c.getFile(payloadPath)
	if err != nil {
		return models.EmptyPayload(), err
	}
	if data == nil {
		return models.EmptyPayload(), nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("remote payload unparseable, treating as empty", "err", err)
		return models.EmptyPayload(), nil
	}
	if payload.Progress == nil {
		payload.Progress = map[string][]string{}
	}
	if payload.Notes == nil {
		payload.Notes = map[string]map[string]string{}
	}
	if payload.Settings == nil {
		payload.Settings = map[string]string{}
	}
	return payload, nil
}

// SaveCardIndex overwrites the card metadata document. LastModified is the
// caller's value, written verbatim.
func (c *Client) SaveCardIndex(index models.CardIndex) error {
	return c.putJSON(cardIndexPath, index)
}

// LoadCardIndex fetches the card metadata document, or the empty index
// when missing or unparseable.
func (c *Client) LoadCardIndex() (models.CardIndex, error) {
	var index models.CardIndex
	data, err := c.getFile(cardIndexPath)
	if err != nil {
		return models.EmptyCardIndex(), err
	}
	if data == nil {
		return models.EmptyCardIndex(), nil
	}
	if err := json.Unmarshal(data, &index); err != nil {
		slog.Warn("remote card index unparseable, treating as empty", "err", err)
		return models.EmptyCardIndex(), nil
	}
	if index.Cards == nil {
		index.Cards = map[string]models.Card{}
	}
	if index.Projects == nil {
		index.Projects = map[string]models.Project{}
	}
	return index, nil
}

// SaveCardContent writes one card's markdown body as its own remote
// object, so editing a single body never rewrites the metadata document.
func (c *Client) SaveCardContent(cardID, body string) error {
	return c.putRaw(cardContentBase+cardID+".md", []byte(body))
}

// LoadCardContent fetches one card's markdown body. Missing content yields
// "" so a single failed body never aborts a full card load.
func (c *Client) LoadCardContent(cardID string) (string, error) {
	data, err := c.getFile(cardContentBase + cardID + ".md")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the drive API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) fileURL(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.BaseURL + "/v1/files/" + strings.Join(parts, "/")
}

func (c *Client) putJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return c.putRaw(path, data)
}

func (c *Client) putRaw(path string, data []byte) error {
	req, err := http.NewRequest("PUT", c.fileURL(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return c.classifyError(resp.StatusCode, body)
	}
	return nil
}

// getFile returns the object bytes, or (nil, nil) when the object does not
// exist. Auth failures surface as ErrUnauthorized so the UI can prompt
// re-login; everything else is a generic failure.
func (c *Client) getFile(path string) ([]byte, error) {
	req, err := http.NewRequest("GET", c.fileURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, c.classifyError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) classifyError(status int, body []byte) error {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		switch status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		default:
			return &apiErr
		}
	}
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}
