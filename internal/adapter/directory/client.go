// Package directory is the client for the subscriber directory, a
// PostgREST-style REST service owning subscriber lifecycle. The pipeline
// only reads subscribers when resolving recipients and writes a single
// deactivation transition when delivery proves a recipient unreachable.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

// Subscriber is the directory's record for one recipient: the chat id used
// for delivery, a region preference, per-severity notify flags, and the
// active flag cleared by soft deletion.
type Subscriber struct {
	ChatID       string `json:"chat_id"`
	Region       string `json:"region"`
	Active       bool   `json:"active"`
	NotifyYellow bool   `json:"notify_yellow"`
	NotifyOrange bool   `json:"notify_orange"`
	NotifyRed    bool   `json:"notify_red"`
}

// Client talks to the subscriber directory.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a directory client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Upsert creates a subscriber, falling back to a partial update when the
// chat id already exists. The create-then-patch pair makes the operation
// idempotent for registration flows.
func (c *Client) Upsert(ctx context.Context, sub Subscriber) error {
	status, err := c.send(ctx, http.MethodPost, "/subscribers", sub)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return c.patch(ctx, sub.ChatID, sub)
	}
	if status >= 300 {
		return fmt.Errorf("%w: create subscriber: status %d", domain.ErrDirectoryUnavailable, status)
	}
	return nil
}

// UpdateRegion changes a subscriber's region preference.
func (c *Client) UpdateRegion(ctx context.Context, chatID, region string) error {
	return c.patch(ctx, chatID, map[string]any{"region": region})
}

// SetNotify flips one per-severity notify flag. Color is the criterion
// severity-color, e.g. "yellow", "orange", "red".
func (c *Client) SetNotify(ctx context.Context, chatID, color string, notify bool) error {
	field := "notify_" + strings.ToLower(color)
	return c.patch(ctx, chatID, map[string]any{field: notify})
}

// Deactivate soft-deletes a subscriber. This is a terminal state: only the
// registration flow re-activates.
func (c *Client) Deactivate(ctx context.Context, chatID string) error {
	return c.patch(ctx, chatID, map[string]any{"active": false})
}

// InterestedIn returns the chat ids of active subscribers in the region who
// have not muted the given severity color.
func (c *Client) InterestedIn(ctx context.Context, region, color string) ([]string, error) {
	params := url.Values{
		"region": {"eq." + region},
		"active": {"eq.true"},
		"notify_" + strings.ToLower(color): {"eq.true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/subscribers?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create query: %v", domain.ErrDirectoryUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: query subscribers: %v", domain.ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: query status %d", domain.ErrDirectoryUnavailable, resp.StatusCode)
	}

	var rows []struct {
		ChatID string `json:"chat_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode query response: %v", domain.ErrDirectoryUnavailable, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ChatID)
	}
	return ids, nil
}

func (c *Client) patch(ctx context.Context, chatID string, body any) error {
	params := url.Values{"chat_id": {"eq." + chatID}}
	status, err := c.send(ctx, http.MethodPatch, "/subscribers?"+params.Encode(), body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: update subscriber: status %d", domain.ErrDirectoryUnavailable, status)
	}
	return nil
}

// send issues one JSON request and returns the status code. Transport
// errors wrap domain.ErrDirectoryUnavailable; status handling is the
// caller's concern.
func (c *Client) send(ctx context.Context, method, path string, body any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("%w: encode body: %v", domain.ErrDirectoryUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %v", domain.ErrDirectoryUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", domain.ErrDirectoryUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
