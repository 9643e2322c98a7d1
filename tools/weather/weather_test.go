package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("current_weather") != "true" {
			t.Errorf("expected current_weather=true, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":28.5,"windspeed":12.0,"weathercode":95,"is_day":0}}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	c.BaseURL = srv.URL
	report, err := c.Current(context.Background(), 5.556, -0.1969)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TemperatureC != 28.5 || report.Condition != "thunderstorm" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.IsDay {
		t.Fatalf("expected night")
	}
}

func TestCurrentUnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":20,"windspeed":5,"weathercode":42,"is_day":1}}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	c.BaseURL = srv.URL
	report, err := c.Current(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Condition != "weather code 42" {
		t.Fatalf("unexpected fallback condition: %q", report.Condition)
	}
}
