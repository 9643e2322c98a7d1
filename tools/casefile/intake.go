// Package casefile forwards incident reports to an external case intake
// backend. Case IDs are issued locally before submission; acknowledgment is
// best-effort.
package casefile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Submission is the payload forwarded to the intake backend.
type Submission struct {
	CaseID      string    `json:"case_id"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Urgency     string    `json:"urgency"`
	ReportedAt  time.Time `json:"reported_at"`
}

// Client posts submissions to the intake backend.
type Client struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient builds an intake client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Submit forwards a case and returns the acknowledged case ID.
func (c *Client) Submit(ctx context.Context, sub Submission) (string, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("marshalling submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("intake submission failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("intake backend returned status %d", resp.StatusCode)
	}
	var raw struct {
		CaseID string `json:"case_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decoding intake response: %w", err)
	}
	if raw.CaseID == "" {
		raw.CaseID = sub.CaseID
	}
	return raw.CaseID, nil
}
