// Package directions fetches turn-by-turn routes from the Mapbox
// Directions API.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Step is one maneuver of a route.
type Step struct {
	Instruction string  `json:"instruction"`
	DistanceM   float64 `json:"distance_m"`
}

// Route summarizes one computed route.
type Route struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
	Mode        string  `json:"mode"`
	Steps       []Step  `json:"steps"`
}

// Client talks to the directions provider.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Mapbox directions client.
func NewClient(token string, timeout time.Duration) *Client {
	return &Client{
		Token:      token,
		BaseURL:    "https://api.mapbox.com",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Route computes a route between two coordinate pairs. Mode is one of
// driving, walking, cycling.
func (c *Client) Route(ctx context.Context, fromLat, fromLon, toLat, toLon float64, mode string) (Route, error) {
	switch mode {
	case "driving", "walking", "cycling":
	case "":
		mode = "driving"
	default:
		return Route{}, fmt.Errorf("unsupported travel mode %q", mode)
	}
	endpoint := fmt.Sprintf(
		"%s/directions/v5/mapbox/%s/%f,%f;%f,%f?access_token=%s&steps=true&overview=full",
		c.BaseURL, mode, fromLon, fromLat, toLon, toLat, url.QueryEscape(c.Token),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Route{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("directions provider returned status %d", resp.StatusCode)
	}
	var raw struct {
		Routes []struct {
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
			Legs     []struct {
				Steps []struct {
					Distance float64 `json:"distance"`
					Maneuver struct {
						Instruction string `json:"instruction"`
					} `json:"maneuver"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Route{}, fmt.Errorf("decoding directions response: %w", err)
	}
	if len(raw.Routes) == 0 {
		return Route{}, fmt.Errorf("no route found")
	}
	r := raw.Routes[0]
	route := Route{
		DistanceKm:  r.Distance / 1000,
		DurationMin: r.Duration / 60,
		Mode:        mode,
	}
	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			route.Steps = append(route.Steps, Step{Instruction: step.Maneuver.Instruction, DistanceM: step.Distance})
		}
	}
	return route, nil
}
