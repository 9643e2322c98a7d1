package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Session    SessionConfig    `mapstructure:"session"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// OracleConfig configures the external LLM decision provider.
type OracleConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxToolIterations int           `mapstructure:"max_tool_iterations"`
}

func (o OracleConfig) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return fmt.Errorf("oracle.api_key is required (GUARDLINE_ORACLE_API_KEY)")
	}
	if strings.TrimSpace(o.Model) == "" {
		return fmt.Errorf("oracle.model is required")
	}
	if o.MaxToolIterations <= 0 {
		return fmt.Errorf("oracle.max_tool_iterations must be > 0")
	}
	return nil
}

// SessionConfig controls session store behaviour.
type SessionConfig struct {
	Store string        `mapstructure:"store"` // inmemory or redis
	TTL   time.Duration `mapstructure:"ttl"`
}

func (s SessionConfig) Validate() error {
	switch s.Store {
	case "inmemory", "redis":
		return nil
	}
	return fmt.Errorf("session.store must be inmemory or redis, got %q", s.Store)
}

// ProvidersConfig groups external capability providers. Every provider here
// is optional: a missing credential disables the capability at startup
// instead of failing the process.
type ProvidersConfig struct {
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Mapping   MappingConfig   `mapstructure:"mapping"`
	Resources ResourcesConfig `mapstructure:"resources"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Intake    IntakeConfig    `mapstructure:"intake"`
}

// WebSearchConfig contains web search settings.
type WebSearchConfig struct {
	Provider     string        `mapstructure:"provider"` // brave or serper
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// APIKey returns the key for the selected provider.
func (w WebSearchConfig) APIKey() string {
	if w.Provider == "serper" {
		return w.SerperAPIKey
	}
	return w.BraveAPIKey
}

// Enabled reports whether a usable credential is configured.
func (w WebSearchConfig) Enabled() bool { return strings.TrimSpace(w.APIKey()) != "" }

// GeocodeConfig contains Nominatim and IP geolocation settings.
type GeocodeConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	IPEndpoint   string        `mapstructure:"ip_endpoint"`
	ContactEmail string        `mapstructure:"contact_email"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// MappingConfig contains Mapbox settings for static maps and directions.
type MappingConfig struct {
	MapboxToken string        `mapstructure:"mapbox_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (m MappingConfig) Enabled() bool { return strings.TrimSpace(m.MapboxToken) != "" }

// ResourcesConfig contains emergency resource lookup settings.
type ResourcesConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	RadiusKm   float64       `mapstructure:"radius_km"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SMSConfig contains Twilio notification settings.
type SMSConfig struct {
	AccountSID  string        `mapstructure:"account_sid"`
	AuthToken   string        `mapstructure:"auth_token"`
	FromNumber  string        `mapstructure:"from_number"`
	AlertNumber string        `mapstructure:"alert_number"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (s SMSConfig) Enabled() bool {
	return strings.TrimSpace(s.AccountSID) != "" && strings.TrimSpace(s.AuthToken) != "" && strings.TrimSpace(s.FromNumber) != ""
}

// IntakeConfig points at the external case intake backend.
type IntakeConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (i IntakeConfig) Enabled() bool { return strings.TrimSpace(i.Endpoint) != "" }

// StorageConfig contains storage settings. Postgres backs case records when
// configured; Redis backs the session store when session.store is redis.
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Configured reports whether any Postgres target is set.
func (p PostgresConfig) Configured() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN builds a connection string from the individual fields unless a full
// URL was provided.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// AssessmentConfig carries the threat-rule keyword taxonomy. The boundaries
// between imminent and elevated indicators are policy, so they live in
// configuration rather than code.
type AssessmentConfig struct {
	ImminentKeywords []string `mapstructure:"imminent_keywords"`
	ElevatedKeywords []string `mapstructure:"elevated_keywords"`
}

func (a AssessmentConfig) Validate() error {
	if len(a.ImminentKeywords) == 0 || len(a.ElevatedKeywords) == 0 {
		return fmt.Errorf("assessment keyword lists must not be empty")
	}
	return nil
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultImminentKeywords are indicators of immediate physical danger.
var DefaultImminentKeywords = []string{
	"weapon", "knife", "gun", "attack", "assault", "violence",
	"threat", "stalking", "following", "danger", "emergency", "robbery",
}

// DefaultElevatedKeywords are indicators of elevated but not immediate risk.
var DefaultElevatedKeywords = []string{
	"suspicious", "unfamiliar", "harassment", "theft", "break-in",
	"unsafe", "concern", "witnessed", "crime", "prowler", "isolated",
}

// LoadConfig loads config from an optional file plus GUARDLINE_* env vars.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	// Credential keys need explicit defaults so AutomaticEnv can see them.
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("providers.web_search.brave_api_key", "")
	v.SetDefault("providers.web_search.serper_api_key", "")
	v.SetDefault("providers.geocode.contact_email", "")
	v.SetDefault("providers.mapping.mapbox_token", "")
	v.SetDefault("providers.sms.account_sid", "")
	v.SetDefault("providers.sms.auth_token", "")
	v.SetDefault("providers.sms.from_number", "")
	v.SetDefault("providers.sms.alert_number", "")
	v.SetDefault("providers.intake.endpoint", "")
	v.SetDefault("providers.intake.api_key", "")
	v.SetDefault("storage.redis.host", "")
	v.SetDefault("storage.redis.port", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "")
	v.SetDefault("storage.postgres.port", "")
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "")
	v.SetDefault("storage.postgres.sslmode", "")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", 30*time.Second)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("oracle.model", "google/gemini-2.5-flash")
	v.SetDefault("oracle.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("oracle.max_tokens", 3000)
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.timeout", 60*time.Second)
	v.SetDefault("oracle.max_tool_iterations", 6)
	v.SetDefault("session.store", "inmemory")
	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("providers.web_search.provider", "brave")
	v.SetDefault("providers.web_search.max_results", 5)
	v.SetDefault("providers.web_search.timeout", 15*time.Second)
	v.SetDefault("providers.geocode.endpoint", "https://nominatim.openstreetmap.org")
	v.SetDefault("providers.geocode.ip_endpoint", "http://ip-api.com/json/")
	v.SetDefault("providers.geocode.timeout", 15*time.Second)
	v.SetDefault("providers.mapping.timeout", 20*time.Second)
	v.SetDefault("providers.resources.endpoint", "https://nominatim.openstreetmap.org")
	v.SetDefault("providers.resources.radius_km", 10.0)
	v.SetDefault("providers.resources.max_results", 5)
	v.SetDefault("providers.resources.timeout", 15*time.Second)
	v.SetDefault("providers.sms.timeout", 10*time.Second)
	v.SetDefault("providers.intake.timeout", 15*time.Second)
	v.SetDefault("assessment.imminent_keywords", DefaultImminentKeywords)
	v.SetDefault("assessment.elevated_keywords", DefaultElevatedKeywords)
	v.SetDefault("telemetry.enabled", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("GUARDLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Env-only deployments carry no config file.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Oracle.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Assessment.Validate(); err != nil {
		return nil, err
	}
	if cfg.Session.Store == "redis" {
		if err := cfg.Storage.Redis.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
