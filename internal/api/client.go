// Package api provides the client for the remote profile/history
// service. Every call is fallible by design: the coordinator treats any
// error as a cue to fall back to local-only behavior, never as fatal.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.lumohealth.io/v1"

// Profile is the wire representation of a user profile. Fields beyond
// the identity trio are opaque to the coordinator and carried verbatim.
type Profile struct {
	ID         string          `json:"id"`
	Fullname   string          `json:"fullname,omitempty"`
	Avatar     string          `json:"avatar,omitempty"`
	Email      string          `json:"email,omitempty"`
	Gender     string          `json:"gender,omitempty"`
	Age        json.RawMessage `json:"age,omitempty"`
	Occupation string          `json:"occupation,omitempty"`
	Bio        string          `json:"bio,omitempty"`
	Interests  json.RawMessage `json:"interests,omitempty"`
	Concerns   json.RawMessage `json:"concerns,omitempty"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
}

// Record is the wire representation of an analysis history record.
type Record struct {
	ID           string          `json:"id"`
	Score        float64         `json:"score,omitempty"`
	HealthIndex  float64         `json:"healthIndex,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	AnalysisData json.RawMessage `json:"analysisData,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// Client is a remote profile/history API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// New creates a client with the given bearer token. An empty token
// means the user is not authenticated and every call will fail fast.
func New(token string) *Client {
	return NewWithBaseURL(token, defaultBaseURL)
}

// NewWithBaseURL creates a client against a custom base URL (for
// testing against a mock server).
func NewWithBaseURL(token, baseURL string) *Client {
	return &Client{
		token:      token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// IsAuthenticated reports whether the client has credentials. It does
// not validate them; an invalid token surfaces as a RemoteFailure on
// first use and the caller falls back to local data.
func (c *Client) IsAuthenticated() bool {
	return c != nil && c.token != ""
}

// doRequest performs an HTTP request with authentication.
func (c *Client) doRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// decodeResponse checks the status and decodes the JSON body into out.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetProfile fetches the current user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	if !c.IsAuthenticated() {
		return nil, fmt.Errorf("not authenticated")
	}

	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/profile", nil)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := decodeResponse(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile pushes a profile to the remote service and returns the
// stored result.
func (c *Client) UpdateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	if !c.IsAuthenticated() {
		return nil, fmt.Errorf("not authenticated")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPut, c.baseURL+"/profile", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var updated Profile
	if err := decodeResponse(resp, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListRecords fetches up to limit history records starting at offset,
// newest first.
func (c *Client) ListRecords(ctx context.Context, limit, offset int) ([]Record, error) {
	if !c.IsAuthenticated() {
		return nil, fmt.Errorf("not authenticated")
	}

	u := fmt.Sprintf("%s/records?limit=%d&offset=%d", c.baseURL, limit, offset)
	resp, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := decodeResponse(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AddRecord creates a history record remotely and returns the stored
// record.
func (c *Client) AddRecord(ctx context.Context, r *Record) (*Record, error) {
	if !c.IsAuthenticated() {
		return nil, fmt.Errorf("not authenticated")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/records", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var created Record
	if err := decodeResponse(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRecord patches a history record remotely.
func (c *Client) UpdateRecord(ctx context.Context, id string, patch *Record) (*Record, error) {
	if !c.IsAuthenticated() {
		return nil, fmt.Errorf("not authenticated")
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}

	u := c.baseURL + "/records/" + url.PathEscape(id)
	resp, err := c.doRequest(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var updated Record
	if err := decodeResponse(resp, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRecord removes a history record remotely.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	if !c.IsAuthenticated() {
		return fmt.Errorf("not authenticated")
	}

	u := c.baseURL + "/records/" + url.PathEscape(id)
	resp, err := c.doRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// DeleteRecords removes several history records in one call.
func (c *Client) DeleteRecords(ctx context.Context, ids []string) error {
	if !c.IsAuthenticated() {
		return fmt.Errorf("not authenticated")
	}

	payload, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return fmt.Errorf("failed to marshal ids: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/records/delete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}
