package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/guardline/guardline/config"
	"github.com/guardline/guardline/internal/assessment"
	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/internal/caseid"
	"github.com/guardline/guardline/internal/store"
	"github.com/guardline/guardline/tools/casefile"
	"github.com/guardline/guardline/tools/directions"
	"github.com/guardline/guardline/tools/geocode"
	"github.com/guardline/guardline/tools/resources"
	"github.com/guardline/guardline/tools/weather"
	"github.com/guardline/guardline/tools/websearch/models"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Locate(ctx context.Context, location string) (geocode.Place, error) {
	if location == "nowhere" {
		return geocode.Place{}, fmt.Errorf("location %q not found", location)
	}
	return geocode.Place{Lat: 5.6, Lon: -0.19, Name: location + ", Ghana"}, nil
}

func (fakeGeocoder) LocateIP(ctx context.Context) (geocode.Place, error) {
	return geocode.Place{Lat: 5.6, Lon: -0.19, Name: "Accra, Ghana"}, nil
}

type fakeWeather struct{}

func (fakeWeather) Current(ctx context.Context, lat, lon float64) (weather.Report, error) {
	return weather.Report{TemperatureC: 28, WindKmh: 10, Condition: "clear sky", IsDay: false}, nil
}

type fakeResources struct{}

func (fakeResources) Nearby(ctx context.Context, lat, lon float64, category string) ([]resources.Resource, error) {
	return []resources.Resource{{Name: "Central Police Station", Address: "High St", DistanceKm: 1.2}}, nil
}

type fakeMaps struct{}

func (fakeMaps) SatelliteURL(ctx context.Context, lat, lon float64, zoom int, size string) (string, error) {
	return fmt.Sprintf("https://maps.example/%f,%f/%d", lat, lon, zoom), nil
}

type fakeRouter struct{}

func (fakeRouter) Route(ctx context.Context, fromLat, fromLon, toLat, toLon float64, mode string) (directions.Route, error) {
	return directions.Route{DistanceKm: 3.4, DurationMin: 12, Mode: mode, Steps: []directions.Step{{Instruction: "Head north", DistanceM: 500}}}, nil
}

type fakeSearcher struct{ queries []string }

func (s *fakeSearcher) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	s.queries = append(s.queries, q)
	return []models.Result{{Title: "result", URL: "https://example.com", Snippet: "snippet"}}, nil
}

type fakeIntake struct {
	fail      bool
	submitted []casefile.Submission
}

func (f *fakeIntake) Submit(ctx context.Context, sub casefile.Submission) (string, error) {
	if f.fail {
		return "", fmt.Errorf("intake backend unreachable")
	}
	f.submitted = append(f.submitted, sub)
	return sub.CaseID, nil
}

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) Send(ctx context.Context, to, message string) (string, error) {
	f.sent = append(f.sent, to+": "+message)
	return "SM123", nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testDeps() *Dependencies {
	return &Dependencies{
		Assessor:  assessment.NewEngine(config.DefaultImminentKeywords, config.DefaultElevatedKeywords),
		CaseIDs:   caseid.NewGenerator(),
		Cases:     store.NewMemoryCaseStore(),
		Geocoder:  fakeGeocoder{},
		Resources: fakeResources{},
		Weather:   fakeWeather{},
		Logger:    nil,
	}
}

func buildTestRegistry(t *testing.T, deps *Dependencies) *capability.Registry {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = discardLogger()
	}
	cfg := testConfig()
	reg, err := BuildRegistry(cfg, deps)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

func TestCatalogComplete(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	want := []string{
		"analyze_threat_patterns",
		"assess_risk_level",
		"coordinates_of_location",
		"create_satellite_map",
		"find_nearby_resources",
		"get_current_location",
		"get_directions",
		"get_legal_information",
		"get_safety_tips",
		"get_weather_information",
		"notify_contact",
		"submit_police_case",
		"web_search",
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d capabilities, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("catalog mismatch at %d: want %q got %q", i, want[i], got[i])
		}
	}
}

func TestUnconfiguredProvidersStayRegistered(t *testing.T) {
	deps := testDeps() // no searcher, maps, router, notifier, intake
	reg := buildTestRegistry(t, deps)

	for _, name := range []string{"web_search", "create_satellite_map", "get_directions", "notify_contact"} {
		args := map[string]any{}
		switch name {
		case "web_search":
			args["query"] = "x"
		case "create_satellite_map":
			args["location"] = "Accra"
		case "get_directions":
			args["origin"] = "A"
			args["destination"] = "B"
		case "notify_contact":
			args["to"] = "+233200000000"
			args["message"] = "hi"
		}
		if err := reg.Validate(name, args); err != nil {
			t.Fatalf("%s: unexpected validation error: %v", name, err)
		}
		_, err := reg.Execute(context.Background(), name, args)
		if !errors.Is(err, capability.ErrUnavailable) {
			t.Fatalf("%s: expected ErrUnavailable, got %v", name, err)
		}
	}
}

func TestAssessRiskCapability(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	out, err := reg.Execute(context.Background(), "assess_risk_level", map[string]any{
		"situation": "someone with a gun is outside",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result assessment.Assessment
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if result.Level != assessment.LevelHigh {
		t.Fatalf("expected High, got %s", result.Level)
	}
}

func TestSafetyTipsFallsBackToGeneral(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	out, err := reg.Execute(context.Background(), "get_safety_tips", map[string]any{
		"situation_type": "something entirely novel",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload struct {
		SituationType string   `json:"situation_type"`
		Tips          []string `json:"tips"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.SituationType != "general" || len(payload.Tips) == 0 {
		t.Fatalf("expected general fallback tips, got %+v", payload)
	}
}

func TestSafetyTipsSupplementsWithSearch(t *testing.T) {
	deps := testDeps()
	searcher := &fakeSearcher{}
	deps.Searcher = searcher
	reg := buildTestRegistry(t, deps)

	out, err := reg.Execute(context.Background(), "get_safety_tips", map[string]any{
		"situation_type": "walking alone",
		"location":       "Accra",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) != 1 {
		t.Fatalf("expected one supplementary search, got %v", searcher.queries)
	}
	if !strings.Contains(out, "local_sources") {
		t.Fatalf("expected local sources in payload, got %s", out)
	}
}

func TestThreatPatterns(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	out, err := reg.Execute(context.Background(), "analyze_threat_patterns", map[string]any{
		"incident_description": "The same car has been parked outside watching the house, and last night someone tried the door",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload struct {
		Patterns []struct {
			Pattern string `json:"pattern"`
		} `json:"patterns"`
		RiskLevel string `json:"risk_level"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	found := map[string]bool{}
	for _, p := range payload.Patterns {
		found[p.Pattern] = true
	}
	if !found["surveillance"] || !found["probing"] {
		t.Fatalf("expected surveillance and probing patterns, got %+v", payload.Patterns)
	}
	if payload.RiskLevel == "" {
		t.Fatalf("expected a risk level alongside patterns")
	}
}

func TestSubmitPoliceCase(t *testing.T) {
	deps := testDeps()
	intake := &fakeIntake{}
	deps.Intake = intake
	reg := buildTestRegistry(t, deps)

	ctx := capability.WithSessionID(context.Background(), "sess-42")
	out, err := reg.Execute(ctx, "submit_police_case", map[string]any{
		"incident_description": "my bicycle was stolen from the yard",
		"location":             "Osu, Accra",
		"urgency":              "low",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload struct {
		CaseID string `json:"case_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if !strings.HasPrefix(payload.CaseID, "CASE_") {
		t.Fatalf("unexpected case ID: %q", payload.CaseID)
	}
	if payload.Status != store.CaseStatusAcknowledged {
		t.Fatalf("intake succeeded, expected acknowledged status, got %q", payload.Status)
	}
	if len(intake.submitted) != 1 || intake.submitted[0].CaseID != payload.CaseID {
		t.Fatalf("intake did not receive the case: %+v", intake.submitted)
	}

	cases, err := deps.Cases.CasesBySession(ctx, "sess-42")
	if err != nil {
		t.Fatalf("listing cases: %v", err)
	}
	if len(cases) != 1 || cases[0].ID != payload.CaseID {
		t.Fatalf("case not attributed to the session: %+v", cases)
	}
	if cases[0].Status != store.CaseStatusAcknowledged {
		t.Fatalf("stored case should be acknowledged, got %q", cases[0].Status)
	}
}

func TestSubmitPoliceCaseTwiceDistinctCases(t *testing.T) {
	deps := testDeps()
	reg := buildTestRegistry(t, deps)

	ctx := capability.WithSessionID(context.Background(), "sess-77")
	ids := make(map[string]struct{}, 2)
	for i := 0; i < 2; i++ {
		out, err := reg.Execute(ctx, "submit_police_case", map[string]any{
			"incident_description": fmt.Sprintf("incident number %d", i+1),
			"location":             "Accra",
		})
		if err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
		var payload struct {
			CaseID string `json:"case_id"`
		}
		if err := json.Unmarshal([]byte(out), &payload); err != nil {
			t.Fatalf("decoding payload %d: %v", i+1, err)
		}
		if _, dup := ids[payload.CaseID]; dup {
			t.Fatalf("second submission reused case ID %s", payload.CaseID)
		}
		ids[payload.CaseID] = struct{}{}
	}

	cases, err := deps.Cases.CasesBySession(ctx, "sess-77")
	if err != nil {
		t.Fatalf("listing cases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 persisted cases, got %d", len(cases))
	}
	if cases[0].ID == cases[1].ID {
		t.Fatalf("persisted cases share an ID: %s", cases[0].ID)
	}
	for _, rec := range cases {
		if _, ok := ids[rec.ID]; !ok {
			t.Fatalf("persisted case %s was never returned to the caller", rec.ID)
		}
		if rec.SessionID != "sess-77" {
			t.Fatalf("case %s attributed to wrong session %q", rec.ID, rec.SessionID)
		}
	}
}

func TestSubmitPoliceCaseSurvivesIntakeFailure(t *testing.T) {
	deps := testDeps()
	deps.Intake = &fakeIntake{fail: true}
	reg := buildTestRegistry(t, deps)

	out, err := reg.Execute(context.Background(), "submit_police_case", map[string]any{
		"incident_description": "harassment outside my building",
		"location":             "Accra",
	})
	if err != nil {
		t.Fatalf("intake failure must not fail the submission: %v", err)
	}
	if !strings.Contains(out, store.CaseStatusSubmitted) {
		t.Fatalf("case should stay in submitted status, got %s", out)
	}
}

func TestSubmitPoliceCaseRejectsBadUrgency(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	_, err := reg.Execute(context.Background(), "submit_police_case", map[string]any{
		"incident_description": "x",
		"location":             "y",
		"urgency":              "catastrophic",
	})
	if err == nil {
		t.Fatalf("expected urgency validation error")
	}
}

func TestHighUrgencyCaseTriggersAlert(t *testing.T) {
	deps := testDeps()
	notifier := &fakeNotifier{}
	deps.Notifier = notifier
	deps.AlertNumber = "+233500000000"
	reg := buildTestRegistry(t, deps)

	_, err := reg.Execute(context.Background(), "submit_police_case", map[string]any{
		"incident_description": "armed robbery in progress nearby",
		"location":             "Accra",
		"urgency":              "high",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one alert SMS, got %v", notifier.sent)
	}
}

func TestWeatherCapabilityAddsNightNote(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	out, err := reg.Execute(context.Background(), "get_weather_information", map[string]any{
		"location": "Accra",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "dark") {
		t.Fatalf("night weather should carry a safety note, got %s", out)
	}
}

func TestNearbyResourcesIncludesEmergencyNumber(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	out, err := reg.Execute(context.Background(), "find_nearby_resources", map[string]any{
		"location": "Accra",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload struct {
		ResourceType    string `json:"resource_type"`
		EmergencyNumber string `json:"emergency_number"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.ResourceType != "police" {
		t.Fatalf("expected default police category, got %q", payload.ResourceType)
	}
	if !strings.Contains(payload.EmergencyNumber, "112") {
		t.Fatalf("expected Ghana emergency number, got %q", payload.EmergencyNumber)
	}
}

func TestDirectionsCapability(t *testing.T) {
	deps := testDeps()
	deps.Maps = fakeMaps{}
	deps.Router = fakeRouter{}
	reg := buildTestRegistry(t, deps)

	out, err := reg.Execute(context.Background(), "get_directions", map[string]any{
		"origin":      "Osu",
		"destination": "Central Police Station",
		"mode":        "walking",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Head north") {
		t.Fatalf("expected route steps in payload, got %s", out)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	if got := truncate("short", 140); got != "short" {
		t.Fatalf("short input must pass through, got %q", got)
	}
	long := strings.Repeat("é", 200)
	got := truncate(long, 140)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 140) + "..."; got != want {
		t.Fatalf("expected 140 runes plus ellipsis, got %d bytes", len(got))
	}
}

func TestLegalInformation(t *testing.T) {
	reg := buildTestRegistry(t, testDeps())
	out, err := reg.Execute(context.Background(), "get_legal_information", map[string]any{
		"country":     "Ghana",
		"legal_topic": "reporting a crime",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "disclaimer") {
		t.Fatalf("legal output must carry the disclaimer, got %s", out)
	}
	if !strings.Contains(out, "report") {
		t.Fatalf("expected topical summary, got %s", out)
	}
}
