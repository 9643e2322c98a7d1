// Package resources locates nearby emergency resources (police stations,
// hospitals, shelters) around a coordinate using Nominatim amenity search.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Resource is one nearby emergency resource.
type Resource struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	DistanceKm float64 `json:"distance_km"`
	Contact    string  `json:"contact,omitempty"`
}

// Client queries the resource locator provider.
type Client struct {
	Endpoint   string
	RadiusKm   float64
	MaxResults int
	HTTPClient *http.Client
}

// NewClient builds a resource locator client.
func NewClient(endpoint string, radiusKm float64, maxResults int, timeout time.Duration) *Client {
	if radiusKm <= 0 {
		radiusKm = 10
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		RadiusKm:   radiusKm,
		MaxResults: maxResults,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// categoryQueries maps a requested resource category to the amenity terms
// the provider understands.
var categoryQueries = map[string]string{
	"police":             "police station",
	"hospital":           "hospital",
	"shelter":            "shelter",
	"safe house":         "shelter",
	"fire":               "fire station",
	"emergency services": "police station",
}

// Nearby returns resources of the given category around the coordinates,
// ordered by distance.
func (c *Client) Nearby(ctx context.Context, lat, lon float64, category string) ([]Resource, error) {
	query, ok := categoryQueries[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		query = category
	}
	// Bound the search to a box around the caller; 1 degree latitude ~ 111 km.
	delta := c.RadiusKm / 111.0
	viewbox := fmt.Sprintf("%f,%f,%f,%f", lon-delta, lat+delta, lon+delta, lat-delta)
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=%d&bounded=1&viewbox=%s",
		c.Endpoint, url.QueryEscape(query), c.MaxResults, url.QueryEscape(viewbox))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "guardline/1.0")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resource lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resource provider returned status %d", resp.StatusCode)
	}
	var raw []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding resource response: %w", err)
	}
	out := make([]Resource, 0, len(raw))
	for _, r := range raw {
		rlat, err1 := strconv.ParseFloat(r.Lat, 64)
		rlon, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		name := r.DisplayName
		if i := strings.Index(name, ","); i > 0 {
			name = name[:i]
		}
		out = append(out, Resource{
			Name:       name,
			Address:    r.DisplayName,
			DistanceKm: haversineKm(lat, lon, rlat, rlon),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

// EmergencyNumber returns the local emergency dial code for a location
// string, falling back to the international 112.
func EmergencyNumber(location string) string {
	numbers := map[string]string{
		"ghana":          "112 or 191 (Police), 193 (Fire/Ambulance)",
		"nigeria":        "199 (Police), 112 (Emergency)",
		"south africa":   "10111 (Police), 10177 (Ambulance)",
		"kenya":          "999 or 112",
		"united states":  "911",
		"canada":         "911",
		"united kingdom": "999 or 112",
		"australia":      "000",
		"new zealand":    "111",
	}
	loc := strings.ToLower(location)
	for country, number := range numbers {
		if strings.Contains(loc, country) {
			return number
		}
	}
	return "112 (International Emergency)"
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
