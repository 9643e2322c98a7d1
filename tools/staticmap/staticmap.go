// Package staticmap renders static satellite map images via the Mapbox
// Static Images API.
package staticmap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client generates static map image references.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Mapbox static map client.
func NewClient(token string, timeout time.Duration) *Client {
	return &Client{
		Token:      token,
		BaseURL:    "https://api.mapbox.com",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// SatelliteURL returns a pinned satellite image URL for the coordinates and
// verifies the provider will serve it. Size is "WxH" in pixels.
func (c *Client) SatelliteURL(ctx context.Context, lat, lon float64, zoom int, size string) (string, error) {
	width, height, err := parseSize(size)
	if err != nil {
		return "", err
	}
	if zoom <= 0 {
		zoom = 16
	}
	imageURL := fmt.Sprintf(
		"%s/styles/v1/mapbox/satellite-v9/static/pin-s+ff0000(%f,%f)/%f,%f,%d/%dx%d@2x?access_token=%s",
		c.BaseURL, lon, lat, lon, lat, zoom, width, height, url.QueryEscape(c.Token),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("map provider request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("map provider returned status %d", resp.StatusCode)
	}
	return imageURL, nil
}

func parseSize(size string) (int, int, error) {
	if size == "" {
		return 600, 400, nil
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(size), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, expected WxH like 600x400", size)
	}
	return w, h, nil
}
