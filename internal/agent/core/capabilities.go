package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/guardline/guardline/config"
	"github.com/guardline/guardline/internal/assessment"
	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/internal/caseid"
	"github.com/guardline/guardline/internal/store"
	"github.com/guardline/guardline/tools/casefile"
	"github.com/guardline/guardline/tools/directions"
	"github.com/guardline/guardline/tools/geocode"
	"github.com/guardline/guardline/tools/notify"
	"github.com/guardline/guardline/tools/resources"
	"github.com/guardline/guardline/tools/staticmap"
	"github.com/guardline/guardline/tools/weather"
	"github.com/guardline/guardline/tools/websearch"
)

// Provider interfaces, satisfied by the tools packages. Capabilities depend
// on these so tests can substitute fakes without network access.
type (
	// Geocoder resolves place names and caller IPs to coordinates.
	Geocoder interface {
		Locate(ctx context.Context, location string) (geocode.Place, error)
		LocateIP(ctx context.Context) (geocode.Place, error)
	}
	// MapRenderer produces static satellite imagery references.
	MapRenderer interface {
		SatelliteURL(ctx context.Context, lat, lon float64, zoom int, size string) (string, error)
	}
	// RoutePlanner computes routes between coordinates.
	RoutePlanner interface {
		Route(ctx context.Context, fromLat, fromLon, toLat, toLon float64, mode string) (directions.Route, error)
	}
	// ResourceFinder locates emergency resources near a coordinate.
	ResourceFinder interface {
		Nearby(ctx context.Context, lat, lon float64, category string) ([]resources.Resource, error)
	}
	// WeatherProvider reports current conditions at a coordinate.
	WeatherProvider interface {
		Current(ctx context.Context, lat, lon float64) (weather.Report, error)
	}
	// IntakeSubmitter forwards case submissions to the external backend.
	IntakeSubmitter interface {
		Submit(ctx context.Context, sub casefile.Submission) (string, error)
	}
)

// Dependencies carries every provider the capability catalog draws on. Nil
// optional providers mean the credential was absent at startup; the matching
// capabilities stay registered but report themselves unavailable.
type Dependencies struct {
	Assessor *assessment.Engine
	CaseIDs  *caseid.Generator
	Cases    store.CaseStore

	Searcher  websearch.Searcher // nil without a search API key
	Geocoder  Geocoder
	Maps      MapRenderer  // nil without a Mapbox token
	Router    RoutePlanner // nil without a Mapbox token
	Resources ResourceFinder
	Weather   WeatherProvider
	Notifier  notify.Notifier // nil without Twilio credentials
	Intake    IntakeSubmitter // nil without an intake endpoint

	AlertNumber string
	Logger      *log.Logger
}

// NewDependencies constructs providers from configuration. Only the oracle
// credential is load-bearing at startup; everything here degrades instead of
// failing, except a configured-but-unreachable Postgres, which is a
// deployment error worth surfacing.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[DEPS] ", log.LstdFlags)
	}
	deps := &Dependencies{
		Assessor: assessment.NewEngine(cfg.Assessment.ImminentKeywords, cfg.Assessment.ElevatedKeywords),
		CaseIDs:  caseid.NewGenerator(),
		Geocoder: geocode.NewClient(
			cfg.Providers.Geocode.Endpoint,
			cfg.Providers.Geocode.IPEndpoint,
			cfg.Providers.Geocode.ContactEmail,
			cfg.Providers.Geocode.Timeout,
		),
		Resources: resources.NewClient(
			cfg.Providers.Resources.Endpoint,
			cfg.Providers.Resources.RadiusKm,
			cfg.Providers.Resources.MaxResults,
			cfg.Providers.Resources.Timeout,
		),
		Weather:     weather.NewClient(cfg.General.DefaultTimeout),
		AlertNumber: cfg.Providers.SMS.AlertNumber,
		Logger:      logger,
	}

	if cfg.Storage.Postgres.Configured() {
		cases, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting case store: %w", err)
		}
		deps.Cases = cases
	} else {
		logger.Printf("postgres not configured, case records are in-memory only")
		deps.Cases = store.NewMemoryCaseStore()
	}

	if cfg.Providers.WebSearch.Enabled() {
		searcher, err := websearch.NewSearcher(
			websearch.Provider(cfg.Providers.WebSearch.Provider),
			cfg.Providers.WebSearch.APIKey(),
		)
		if err != nil {
			return nil, fmt.Errorf("building web searcher: %w", err)
		}
		deps.Searcher = searcher
	} else {
		logger.Printf("web search disabled: no API key configured")
	}

	if cfg.Providers.Mapping.Enabled() {
		deps.Maps = staticmap.NewClient(cfg.Providers.Mapping.MapboxToken, cfg.Providers.Mapping.Timeout)
		deps.Router = directions.NewClient(cfg.Providers.Mapping.MapboxToken, cfg.Providers.Mapping.Timeout)
	} else {
		logger.Printf("mapping disabled: no Mapbox token configured")
	}

	if cfg.Providers.SMS.Enabled() {
		deps.Notifier = notify.NewTwilioClient(
			cfg.Providers.SMS.AccountSID,
			cfg.Providers.SMS.AuthToken,
			cfg.Providers.SMS.FromNumber,
			cfg.Providers.SMS.Timeout,
		)
	} else {
		logger.Printf("sms notifications disabled: Twilio not configured")
	}

	if cfg.Providers.Intake.Enabled() {
		deps.Intake = casefile.NewClient(
			cfg.Providers.Intake.Endpoint,
			cfg.Providers.Intake.APIKey,
			cfg.Providers.Intake.Timeout,
		)
	} else {
		logger.Printf("case intake forwarding disabled: no endpoint configured")
	}

	return deps, nil
}

// BuildRegistry assembles the full capability catalog. Every capability is
// registered regardless of provider availability so the oracle always sees a
// stable catalog; unconfigured ones fail cleanly at execution time.
func BuildRegistry(cfg *config.Config, deps *Dependencies) (*capability.Registry, error) {
	maxSearch := cfg.Providers.WebSearch.MaxResults

	specs := []capability.Spec{
		{
			Name:        "web_search",
			Description: "Search the web for current information: recent crime reports, local news, safety advisories.",
			Params: []capability.Param{
				{Name: "query", Type: capability.TypeString, Description: "Search query", Required: true},
				{Name: "max_results", Type: capability.TypeInteger, Description: "Maximum results to return"},
			},
			Transient: true,
			Run:       webSearchRun(deps, maxSearch),
		},
		{
			Name:        "assess_risk_level",
			Description: "Rate the risk level (Low, Medium, High) of a described situation and get recommended actions. Deterministic rule-based rating.",
			Params: []capability.Param{
				{Name: "situation", Type: capability.TypeString, Description: "Description of the situation to assess", Required: true},
				{Name: "location", Type: capability.TypeString, Description: "Where the situation is occurring"},
				{Name: "context", Type: capability.TypeString, Description: "Additional context such as time of day or who is involved"},
			},
			Run: assessRiskRun(deps),
		},
		{
			Name:        "get_safety_tips",
			Description: "Get practical safety tips for a type of situation, such as walking alone, home security, or harassment.",
			Params: []capability.Param{
				{Name: "situation_type", Type: capability.TypeString, Description: "Type of situation, e.g. walking alone, home security", Required: true},
				{Name: "location", Type: capability.TypeString, Description: "Location for locally relevant tips"},
			},
			Transient: true,
			Run:       safetyTipsRun(deps),
		},
		{
			Name:        "analyze_threat_patterns",
			Description: "Analyze an incident description for known threat patterns such as surveillance, escalation, or probing behaviour.",
			Params: []capability.Param{
				{Name: "incident_description", Type: capability.TypeString, Description: "Description of the incident or pattern of incidents", Required: true},
				{Name: "location", Type: capability.TypeString, Description: "Where the incidents occurred"},
			},
			Run: threatPatternsRun(deps),
		},
		{
			Name:        "get_weather_information",
			Description: "Get current weather conditions for a location, useful for travel safety planning.",
			Params: []capability.Param{
				{Name: "location", Type: capability.TypeString, Description: "Place name to get weather for", Required: true},
			},
			Transient: true,
			Run:       weatherRun(deps),
		},
		{
			Name:        "get_legal_information",
			Description: "Get general legal orientation for a country and topic, such as reporting a crime, self defense, or restraining orders. Not legal advice.",
			Params: []capability.Param{
				{Name: "country", Type: capability.TypeString, Description: "Country the question concerns", Required: true},
				{Name: "legal_topic", Type: capability.TypeString, Description: "Legal topic, e.g. reporting a crime, self defense", Required: true},
				{Name: "situation", Type: capability.TypeString, Description: "Brief description of the situation"},
			},
			Transient: true,
			Run:       legalInfoRun(deps),
		},
		{
			Name:        "coordinates_of_location",
			Description: "Resolve a place name to latitude and longitude coordinates.",
			Params: []capability.Param{
				{Name: "location", Type: capability.TypeString, Description: "Place name to resolve", Required: true},
			},
			Transient: true,
			Run:       coordinatesRun(deps),
		},
		{
			Name:        "get_current_location",
			Description: "Estimate the user's current location from their network address. Approximate, city level.",
			Transient:   true,
			Run:         currentLocationRun(deps),
		},
		{
			Name:        "create_satellite_map",
			Description: "Create a satellite map image of a location, with the location pinned.",
			Params: []capability.Param{
				{Name: "location", Type: capability.TypeString, Description: "Place name to map", Required: true},
				{Name: "zoom", Type: capability.TypeInteger, Description: "Zoom level, default 16"},
				{Name: "size", Type: capability.TypeString, Description: "Image size as WxH, default 600x400"},
			},
			Transient: true,
			Run:       satelliteMapRun(deps),
		},
		{
			Name:        "get_directions",
			Description: "Get turn-by-turn directions between two places, for example to the nearest police station.",
			Params: []capability.Param{
				{Name: "origin", Type: capability.TypeString, Description: "Starting place name", Required: true},
				{Name: "destination", Type: capability.TypeString, Description: "Destination place name", Required: true},
				{Name: "mode", Type: capability.TypeString, Description: "Travel mode: driving, walking, or cycling"},
			},
			Transient: true,
			Run:       directionsRun(deps),
		},
		{
			Name:        "find_nearby_resources",
			Description: "Find emergency resources near a location: police stations, hospitals, shelters. Includes the local emergency number.",
			Params: []capability.Param{
				{Name: "location", Type: capability.TypeString, Description: "Place name to search around", Required: true},
				{Name: "resource_type", Type: capability.TypeString, Description: "Resource category: police, hospital, shelter, fire"},
			},
			Transient: true,
			Run:       nearbyResourcesRun(deps),
		},
		{
			Name:        "submit_police_case",
			Description: "File an incident report as an official case. Returns a case ID the user can reference later.",
			Params: []capability.Param{
				{Name: "incident_description", Type: capability.TypeString, Description: "What happened", Required: true},
				{Name: "location", Type: capability.TypeString, Description: "Where it happened", Required: true},
				{Name: "urgency", Type: capability.TypeString, Description: "Urgency: low, medium, or high"},
				{Name: "contact_method", Type: capability.TypeString, Description: "How the user can be reached for follow-up"},
			},
			Transient: true,
			Run:       submitCaseRun(deps),
		},
		{
			Name:        "notify_contact",
			Description: "Send an SMS alert to a phone number, for example to a trusted contact.",
			Params: []capability.Param{
				{Name: "to", Type: capability.TypeString, Description: "Destination phone number in E.164 format", Required: true},
				{Name: "message", Type: capability.TypeString, Description: "Message text", Required: true},
			},
			Transient: true,
			Run:       notifyContactRun(deps),
		},
	}

	return capability.NewRegistry(specs)
}

func webSearchRun(deps *Dependencies, defaultMax int) capability.RunFunc {
	if deps.Searcher == nil {
		return capability.UnavailableRun("web_search")
	}
	return func(ctx context.Context, args map[string]any) (string, error) {
		query := capability.String(args, "query")
		k := capability.Int(args, "max_results", defaultMax)
		results, err := deps.Searcher.Search(ctx, query, k)
		if err != nil {
			return "", fmt.Errorf("web search: %w", err)
		}
		return asJSON(map[string]any{"query": query, "results": results})
	}
}

func assessRiskRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		result, err := deps.Assessor.Assess(assessment.Situation{
			Narrative: capability.String(args, "situation"),
			Location:  capability.String(args, "location"),
			Context:   capability.String(args, "context"),
		})
		if err != nil {
			return "", err
		}
		return asJSON(result)
	}
}

func safetyTipsRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		situationType := capability.String(args, "situation_type")
		location := capability.String(args, "location")
		matched, tips := tipsFor(situationType)
		payload := map[string]any{
			"situation_type": matched,
			"tips":           tips,
		}
		// Local, current advice when a searcher is available. Best-effort:
		// curated tips stand on their own.
		if deps.Searcher != nil && location != "" {
			query := fmt.Sprintf("safety tips %s %s", situationType, location)
			if results, err := deps.Searcher.Search(ctx, query, 3); err == nil && len(results) > 0 {
				payload["local_sources"] = results
			}
		}
		return asJSON(payload)
	}
}

func threatPatternsRun(deps *Dependencies) capability.RunFunc {
	type match struct {
		Pattern    string `json:"pattern"`
		Indicator  string `json:"indicator"`
		Meaning    string `json:"meaning"`
		Suggestion string `json:"suggestion"`
	}
	return func(ctx context.Context, args map[string]any) (string, error) {
		description := capability.String(args, "incident_description")
		if strings.TrimSpace(description) == "" {
			return "", assessment.ErrInvalidInput
		}
		haystack := strings.ToLower(description)
		var matches []match
		for _, ind := range threatPatternIndicators {
			for _, trigger := range ind.Triggers {
				if strings.Contains(haystack, trigger) {
					matches = append(matches, match{
						Pattern:    ind.Pattern,
						Indicator:  trigger,
						Meaning:    ind.Meaning,
						Suggestion: ind.Suggestion,
					})
					break
				}
			}
		}
		rating, err := deps.Assessor.Assess(assessment.Situation{
			Narrative: description,
			Location:  capability.String(args, "location"),
		})
		if err != nil {
			return "", err
		}
		return asJSON(map[string]any{
			"patterns":   matches,
			"risk_level": rating.Level,
			"rationale":  rating.Rationale,
		})
	}
}

func weatherRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		place, err := deps.Geocoder.Locate(ctx, capability.String(args, "location"))
		if err != nil {
			return "", err
		}
		report, err := deps.Weather.Current(ctx, place.Lat, place.Lon)
		if err != nil {
			return "", err
		}
		note := ""
		if !report.IsDay {
			note = "It is currently dark there; prefer lit, populated routes."
		}
		if strings.Contains(report.Condition, "thunderstorm") || strings.Contains(report.Condition, "heavy") {
			note = strings.TrimSpace(note + " Severe weather reduces visibility and response times; delay nonessential travel.")
		}
		return asJSON(map[string]any{
			"location":    place.Name,
			"weather":     report,
			"safety_note": note,
		})
	}
}

func legalInfoRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		country := capability.String(args, "country")
		topic := capability.String(args, "legal_topic")
		payload := map[string]any{
			"country":          country,
			"emergency_number": resources.EmergencyNumber(country),
			"disclaimer":       "General orientation only, not legal advice. Laws vary; consult a local lawyer or legal aid service.",
		}
		if matched, lines, ok := legalInfoFor(topic); ok {
			payload["topic"] = matched
			payload["summary"] = lines
		} else {
			payload["topic"] = topic
			payload["summary"] = []string{"No curated summary for this topic. Contact local legal aid or a lawyer for specifics."}
		}
		if deps.Searcher != nil {
			query := fmt.Sprintf("%s law %s", topic, country)
			if results, err := deps.Searcher.Search(ctx, query, 3); err == nil && len(results) > 0 {
				payload["sources"] = results
			}
		}
		return asJSON(payload)
	}
}

func coordinatesRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		place, err := deps.Geocoder.Locate(ctx, capability.String(args, "location"))
		if err != nil {
			return "", err
		}
		return asJSON(place)
	}
}

func currentLocationRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		place, err := deps.Geocoder.LocateIP(ctx)
		if err != nil {
			return "", err
		}
		return asJSON(map[string]any{
			"location": place,
			"accuracy": "approximate, network-based",
		})
	}
}

func satelliteMapRun(deps *Dependencies) capability.RunFunc {
	if deps.Maps == nil {
		return capability.UnavailableRun("create_satellite_map")
	}
	return func(ctx context.Context, args map[string]any) (string, error) {
		place, err := deps.Geocoder.Locate(ctx, capability.String(args, "location"))
		if err != nil {
			return "", err
		}
		zoom := capability.Int(args, "zoom", 16)
		size := capability.String(args, "size")
		imageURL, err := deps.Maps.SatelliteURL(ctx, place.Lat, place.Lon, zoom, size)
		if err != nil {
			return "", err
		}
		return asJSON(map[string]any{"location": place.Name, "map_url": imageURL})
	}
}

func directionsRun(deps *Dependencies) capability.RunFunc {
	if deps.Router == nil {
		return capability.UnavailableRun("get_directions")
	}
	return func(ctx context.Context, args map[string]any) (string, error) {
		origin, err := deps.Geocoder.Locate(ctx, capability.String(args, "origin"))
		if err != nil {
			return "", fmt.Errorf("resolving origin: %w", err)
		}
		destination, err := deps.Geocoder.Locate(ctx, capability.String(args, "destination"))
		if err != nil {
			return "", fmt.Errorf("resolving destination: %w", err)
		}
		route, err := deps.Router.Route(ctx, origin.Lat, origin.Lon, destination.Lat, destination.Lon, capability.String(args, "mode"))
		if err != nil {
			return "", err
		}
		return asJSON(map[string]any{
			"origin":      origin.Name,
			"destination": destination.Name,
			"route":       route,
		})
	}
}

func nearbyResourcesRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		location := capability.String(args, "location")
		place, err := deps.Geocoder.Locate(ctx, location)
		if err != nil {
			return "", err
		}
		category := capability.String(args, "resource_type")
		if category == "" {
			category = "police"
		}
		found, err := deps.Resources.Nearby(ctx, place.Lat, place.Lon, category)
		if err != nil {
			return "", err
		}
		return asJSON(map[string]any{
			"location":         place.Name,
			"resource_type":    category,
			"resources":        found,
			"emergency_number": resources.EmergencyNumber(place.Name),
		})
	}
}

func submitCaseRun(deps *Dependencies) capability.RunFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		urgency := strings.ToLower(capability.String(args, "urgency"))
		switch urgency {
		case "low", "medium", "high":
		case "":
			urgency = "medium"
		default:
			return "", fmt.Errorf("urgency must be low, medium, or high, got %q", urgency)
		}
		rec := store.CaseRecord{
			ID:            deps.CaseIDs.Next(),
			SessionID:     capability.SessionIDFromContext(ctx),
			Description:   capability.String(args, "incident_description"),
			Location:      capability.String(args, "location"),
			Urgency:       urgency,
			ContactMethod: capability.String(args, "contact_method"),
			Status:        store.CaseStatusSubmitted,
			CreatedAt:     time.Now().UTC(),
		}
		if err := deps.Cases.SaveCase(ctx, rec); err != nil {
			return "", fmt.Errorf("persisting case: %w", err)
		}

		// Forwarding and the SMS alert are best-effort: the case exists the
		// moment it is persisted locally.
		if deps.Intake != nil {
			ackID, err := deps.Intake.Submit(ctx, casefile.Submission{
				CaseID:      rec.ID,
				Description: rec.Description,
				Location:    rec.Location,
				Urgency:     rec.Urgency,
				ReportedAt:  rec.CreatedAt,
			})
			if err != nil {
				deps.Logger.Printf("intake forwarding for case %s failed: %v", rec.ID, err)
			} else {
				rec.Status = store.CaseStatusAcknowledged
				if err := deps.Cases.MarkAcknowledged(ctx, rec.ID); err != nil {
					deps.Logger.Printf("marking case %s acknowledged: %v", rec.ID, err)
				}
				deps.Logger.Printf("case %s acknowledged by intake as %s", rec.ID, ackID)
			}
		}
		if deps.Notifier != nil && deps.AlertNumber != "" && urgency == "high" {
			alert := fmt.Sprintf("New high-urgency case %s at %s: %s", rec.ID, rec.Location, truncate(rec.Description, 140))
			if _, err := deps.Notifier.Send(ctx, deps.AlertNumber, alert); err != nil {
				deps.Logger.Printf("alert sms for case %s failed: %v", rec.ID, err)
			}
		}

		return asJSON(map[string]any{
			"case_id": rec.ID,
			"status":  rec.Status,
			"next_steps": []string{
				"Keep this case ID for reference in any follow-up.",
				"If the situation escalates, call your local emergency number immediately.",
			},
		})
	}
}

func notifyContactRun(deps *Dependencies) capability.RunFunc {
	if deps.Notifier == nil {
		return capability.UnavailableRun("notify_contact")
	}
	return func(ctx context.Context, args map[string]any) (string, error) {
		sid, err := deps.Notifier.Send(ctx, capability.String(args, "to"), capability.String(args, "message"))
		if err != nil {
			return "", err
		}
		return asJSON(map[string]any{"delivered": true, "message_sid": sid})
	}
}

func asJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(b), nil
}

// truncate cuts on a rune boundary so multi-byte text stays valid UTF-8.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
