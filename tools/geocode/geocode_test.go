package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLocate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "guardline") {
			t.Errorf("expected identifying user agent, got %q", ua)
		}
		if q := r.URL.Query().Get("q"); q != "Accra" {
			t.Errorf("unexpected query %q", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"5.556","lon":"-0.1969","display_name":"Accra, Greater Accra, Ghana"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "ops@example.com", 5*time.Second)
	place, err := c.Locate(context.Background(), "Accra")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.Lat != 5.556 || place.Lon != -0.1969 {
		t.Fatalf("unexpected coordinates: %+v", place)
	}
	if !strings.Contains(place.Name, "Accra") {
		t.Fatalf("unexpected name: %q", place.Name)
	}
}

func TestLocateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", 5*time.Second)
	if _, err := c.Locate(context.Background(), "Atlantis"); err == nil {
		t.Fatalf("expected error for unknown place")
	}
}

func TestLocateEmptyInput(t *testing.T) {
	c := NewClient("http://unused", "", "", time.Second)
	if _, err := c.Locate(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty location")
	}
}

func TestLocateIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","city":"Accra","regionName":"Greater Accra","country":"Ghana","lat":5.55,"lon":-0.19}`))
	}))
	defer srv.Close()

	c := NewClient("http://unused", srv.URL, "", 5*time.Second)
	place, err := c.LocateIP(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.Name != "Accra, Greater Accra, Ghana" {
		t.Fatalf("unexpected name: %q", place.Name)
	}
}

func TestLocateIPFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail"}`))
	}))
	defer srv.Close()

	c := NewClient("http://unused", srv.URL, "", 5*time.Second)
	if _, err := c.LocateIP(context.Background()); err == nil {
		t.Fatalf("expected error when provider reports failure")
	}
}
