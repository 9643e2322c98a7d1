// Package weather fetches current conditions from the Open-Meteo API.
// Weather feeds risk context (visibility, storms, heat) for safety advice.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Report is the current weather at a coordinate.
type Report struct {
	TemperatureC float64 `json:"temperature_c"`
	WindKmh      float64 `json:"wind_kmh"`
	Condition    string  `json:"condition"`
	IsDay        bool    `json:"is_day"`
}

// Client queries the weather provider.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds an Open-Meteo client. No credential required.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		BaseURL:    "https://api.open-meteo.com",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// weatherCodes maps WMO weather codes to human descriptions.
var weatherCodes = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	71: "slight snow",
	73: "moderate snow",
	75: "heavy snow",
	80: "rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

// Current returns the present conditions at the coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Report, error) {
	endpoint := fmt.Sprintf("%s/v1/forecast?latitude=%f&longitude=%f&current_weather=true", c.BaseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Report{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather provider returned status %d", resp.StatusCode)
	}
	var raw struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"`
			WeatherCode int     `json:"weathercode"`
			IsDay       int     `json:"is_day"`
		} `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Report{}, fmt.Errorf("decoding weather response: %w", err)
	}
	condition := weatherCodes[raw.CurrentWeather.WeatherCode]
	if condition == "" {
		condition = fmt.Sprintf("weather code %d", raw.CurrentWeather.WeatherCode)
	}
	return Report{
		TemperatureC: raw.CurrentWeather.Temperature,
		WindKmh:      raw.CurrentWeather.WindSpeed,
		Condition:    condition,
		IsDay:        raw.CurrentWeather.IsDay == 1,
	}, nil
}
