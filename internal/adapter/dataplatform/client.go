// Package dataplatform fetches report files from the KNMI Data Platform
// open-data API. A file event carries an API URL; resolving it with the API
// token yields a temporary signed download URL, which is then fetched
// without credentials.
package dataplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

// Client resolves temporary download URLs and fetches report bodies.
type Client struct {
	token          string
	resolveClient  *http.Client
	downloadClient *http.Client
	logger         *slog.Logger
}

// NewClient creates a download client. The token authorizes the resolve
// call only; the signed URL itself is fetched unauthenticated.
func NewClient(token string, resolveTimeout, downloadTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token:          token,
		resolveClient:  &http.Client{Timeout: resolveTimeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
		logger:         logger,
	}
}

// ResolveDownloadURL exchanges a file's API URL for a temporary signed
// download URL. Failures wrap domain.ErrDownloadFailed.
func (c *Client) ResolveDownloadURL(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create resolve request: %v", domain.ErrDownloadFailed, err)
	}
	req.Header.Set("Authorization", c.token)

	resp, err := c.resolveClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: resolve request: %v", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: resolve status %d: %s", domain.ErrDownloadFailed, resp.StatusCode, body)
	}

	var payload struct {
		TemporaryDownloadURL string `json:"temporaryDownloadUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode resolve response: %v", domain.ErrDownloadFailed, err)
	}
	if payload.TemporaryDownloadURL == "" {
		return "", fmt.Errorf("%w: resolve response missing temporaryDownloadUrl", domain.ErrDownloadFailed)
	}

	return payload.TemporaryDownloadURL, nil
}

// Download fetches the full report body into memory. Reports are small
// (tens of kilobytes), so no streaming is needed before parsing.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create download request: %v", domain.ErrDownloadFailed, err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download request: %v", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download status %d", domain.ErrDownloadFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read download body: %v", domain.ErrDownloadFailed, err)
	}

	c.logger.Debug("report downloaded", "bytes", len(body))
	return body, nil
}
