// Package evolution is a minimal client for the Evolution API endpoints
// the sync orchestrator needs: connection state, contact listing, and
// group listing. Every call carries the static apikey header.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Contact is one entry returned by the findContacts endpoint.
type Contact struct {
	RemoteJid     string  `json:"remoteJid"`
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	PushName      string  `json:"pushName,omitempty"`
	ProfilePicURL *string `json:"profilePicUrl,omitempty"`
	IsBusiness    bool    `json:"isBusiness,omitempty"`
	IsGroup       bool    `json:"isGroup,omitempty"`
}

// Group is one entry returned by the fetchAllGroups endpoint.
type Group struct {
	ID      string `json:"id"`
	Subject string `json:"subject,omitempty"`
	Size    int    `json:"size,omitempty"`
}

// connectionStateResponse mirrors the connectionState endpoint payload.
type connectionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// Connected reports whether an instance state counts as connected.
// The upstream is inconsistent about casing and wording.
func Connected(state string) bool {
	switch strings.ToLower(state) {
	case "open", "connected":
		return true
	}
	return false
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client's timeout is the
// only per-call deadline the sync path enforces.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to one Evolution API deployment on behalf of all tenants.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConnectionState returns the raw instance state for a tenant.
func (c *Client) ConnectionState(ctx context.Context, tenantID string) (string, error) {
	var resp connectionStateResponse
	err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+url.PathEscape(tenantID), nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Instance.State, nil
}

// FindContacts returns the tenant's full contact list, including entries
// that represent groups. Callers filter.
func (c *Client) FindContacts(ctx context.Context, tenantID string) ([]Contact, error) {
	var contacts []Contact
	err := c.do(ctx, http.MethodPost, "/chat/findContacts/"+url.PathEscape(tenantID), map[string]any{}, &contacts)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// FetchAllGroups returns the tenant's groups without member lists, which
// keeps the upstream call cheap.
func (c *Client) FetchAllGroups(ctx context.Context, tenantID string) ([]Group, error) {
	var groups []Group
	path := "/group/fetchAllGroups/" + url.PathEscape(tenantID) + "?getParticipants=false"
	err := c.do(ctx, http.MethodGet, path, nil, &groups)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("evolution: marshal body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("evolution: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("evolution: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("evolution: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("evolution: %s %s: decode response: %w", method, path, err)
	}
	return nil
}
