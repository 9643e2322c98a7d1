// Package geocode resolves place names and caller IPs to coordinates using
// OpenStreetMap Nominatim and ip-api.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Place is a resolved location.
type Place struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

// Client talks to the geocoding providers.
type Client struct {
	Endpoint     string // Nominatim base URL
	IPEndpoint   string // ip-api style endpoint
	ContactEmail string // identifies us in the Nominatim User-Agent, per usage policy
	HTTPClient   *http.Client
}

// NewClient builds a geocoding client with the given timeout.
func NewClient(endpoint, ipEndpoint, contactEmail string, timeout time.Duration) *Client {
	return &Client{
		Endpoint:     strings.TrimRight(endpoint, "/"),
		IPEndpoint:   ipEndpoint,
		ContactEmail: contactEmail,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

// Locate resolves a place name to coordinates.
func (c *Client) Locate(ctx context.Context, location string) (Place, error) {
	if strings.TrimSpace(location) == "" {
		return Place{}, fmt.Errorf("location must not be empty")
	}
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.Endpoint, url.QueryEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoding provider returned status %d", resp.StatusCode)
	}
	var raw []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Place{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(raw) == 0 {
		return Place{}, fmt.Errorf("location %q not found", location)
	}
	lat, err := strconv.ParseFloat(raw[0].Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(raw[0].Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parsing longitude: %w", err)
	}
	name := raw[0].DisplayName
	if name == "" {
		name = location
	}
	return Place{Lat: lat, Lon: lon, Name: name}, nil
}

// LocateIP resolves the caller's approximate location from its IP address.
func (c *Client) LocateIP(ctx context.Context) (Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.IPEndpoint, nil)
	if err != nil {
		return Place{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("ip geolocation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("ip geolocation provider returned status %d", resp.StatusCode)
	}
	var raw struct {
		Status  string  `json:"status"`
		City    string  `json:"city"`
		Region  string  `json:"regionName"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Place{}, fmt.Errorf("decoding ip geolocation response: %w", err)
	}
	if raw.Status != "success" {
		return Place{}, fmt.Errorf("ip geolocation unavailable")
	}
	parts := []string{}
	for _, p := range []string{raw.City, raw.Region, raw.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Place{Lat: raw.Lat, Lon: raw.Lon, Name: strings.Join(parts, ", ")}, nil
}

func (c *Client) userAgent() string {
	if c.ContactEmail == "" {
		return "guardline/1.0"
	}
	return fmt.Sprintf("guardline/1.0 (%s)", c.ContactEmail)
}
