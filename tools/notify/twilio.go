// Package notify sends SMS notifications through the Twilio REST API.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier delivers a text message to a destination number.
type Notifier interface {
	Send(ctx context.Context, to, message string) (string, error)
}

// TwilioClient implements Notifier against the Twilio messages endpoint.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	HTTPClient *http.Client
}

// NewTwilioClient builds an SMS notifier.
func NewTwilioClient(accountSID, authToken, from string, timeout time.Duration) *TwilioClient {
	return &TwilioClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    "https://api.twilio.com",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Send delivers a message and returns the provider's message SID.
func (c *TwilioClient) Send(ctx context.Context, to, message string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", fmt.Errorf("destination number must not be empty")
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.From)
	form.Set("Body", message)
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.BaseURL, url.PathEscape(c.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms delivery failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	var raw struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decoding sms response: %w", err)
	}
	return raw.SID, nil
}
