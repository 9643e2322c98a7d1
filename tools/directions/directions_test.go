package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/walking/") {
			t.Errorf("expected walking profile in path, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"routes":[{
			"duration":720,
			"distance":3400,
			"legs":[{"steps":[
				{"distance":500,"maneuver":{"instruction":"Head north"}},
				{"distance":2900,"maneuver":{"instruction":"Turn left onto High St"}}
			]}]
		}]}`))
	}))
	defer srv.Close()

	c := NewClient("tok", 5*time.Second)
	c.BaseURL = srv.URL
	route, err := c.Route(context.Background(), 5.55, -0.19, 5.56, -0.20, "walking")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.DistanceKm != 3.4 || route.DurationMin != 12 {
		t.Fatalf("unexpected totals: %+v", route)
	}
	if len(route.Steps) != 2 || route.Steps[0].Instruction != "Head north" {
		t.Fatalf("unexpected steps: %+v", route.Steps)
	}
}

func TestRouteUnsupportedMode(t *testing.T) {
	c := NewClient("tok", time.Second)
	if _, err := c.Route(context.Background(), 0, 0, 1, 1, "teleport"); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}

func TestRouteNoRouteFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[]}`))
	}))
	defer srv.Close()

	c := NewClient("tok", 5*time.Second)
	c.BaseURL = srv.URL
	if _, err := c.Route(context.Background(), 0, 0, 1, 1, ""); err == nil {
		t.Fatalf("expected error when no route exists")
	}
}
