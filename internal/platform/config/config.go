// Package config loads service configuration from the environment, with an
// optional YAML overlay for provider endpoints and ordering.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider IDs in their default invocation order.
const (
	ProviderPeopleData      = "peopledatalabs"
	ProviderHunter          = "hunter"
	ProviderBusinessReg     = "globalcompanydata"
	ProviderPropertyRecords = "propertyrecords"

	ListingZillow   = "zillow"
	ListingAttom    = "attom"
	ListingRentCast = "rentcast"
)

const (
	DefaultAddr                    = ":8080"
	DefaultProviderTimeout         = 8 * time.Second
	DefaultReportCacheTTL          = 10 * time.Minute
	DefaultCircuitFailureThreshold = 5
	DefaultCircuitCooldown         = 30 * time.Second
	DefaultAuditTopic              = "landtrust.verifications"
	DefaultMaxBodyBytes            = 64 << 10
	DefaultRequestTimeout          = 30 * time.Second
)

// Server captures all service configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	// Providers are the verification sources in invocation order. Only
	// entries with a credential are enabled.
	Providers []ProviderConfig
	// Listings are the property search sources in result order.
	Listings []ProviderConfig

	ProviderTimeout         time.Duration
	ReportCacheTTL          time.Duration
	CircuitFailureThreshold int
	CircuitCooldown         time.Duration
	MaxBodyBytes            int64
	RequestTimeout          time.Duration

	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
}

// ProviderConfig is one external data source.
type ProviderConfig struct {
	ID         string
	BaseURL    string
	Credential string
	Timeout    time.Duration
}

// Enabled reports whether the source has a credential.
func (p ProviderConfig) Enabled() bool {
	return p.Credential != ""
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds the Postgres DSN. An empty URL disables history.
type DatabaseConfig struct {
	URL string
}

// KafkaConfig enables audit publishing when Brokers is set.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// EnabledProviders returns providers with a credential, in order.
func (s Server) EnabledProviders() []ProviderConfig {
	return enabled(s.Providers)
}

// EnabledListings returns listing sources with a credential, in order.
func (s Server) EnabledListings() []ProviderConfig {
	return enabled(s.Listings)
}

func enabled(in []ProviderConfig) []ProviderConfig {
	out := make([]ProviderConfig, 0, len(in))
	for _, p := range in {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// FromEnv builds the configuration from environment variables and applies
// PROVIDER_CONFIG_FILE when set.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        envOr("LANDTRUST_ADDR", DefaultAddr),
		Environment: envOr("LANDTRUST_ENV", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		Providers: []ProviderConfig{
			{ID: ProviderPeopleData, Credential: os.Getenv("PEOPLE_DATA_LABS")},
			{ID: ProviderHunter, Credential: os.Getenv("HUNTER_IO_API_KEY")},
			{ID: ProviderBusinessReg, Credential: os.Getenv("GLOBAL_COMPANY_DATA")},
			{ID: ProviderPropertyRecords, Credential: os.Getenv("PROPERTY_RECORDS_API_KEY")},
		},
		Listings: []ProviderConfig{
			{ID: ListingZillow, Credential: os.Getenv("ZILLOW_API_KEY")},
			{ID: ListingAttom, Credential: os.Getenv("ATTOM_API_KEY")},
			{ID: ListingRentCast, Credential: os.Getenv("RENTCAST_API")},
		},
		MaxBodyBytes:    DefaultMaxBodyBytes,
		RequestTimeout:  DefaultRequestTimeout,
		CircuitCooldown: DefaultCircuitCooldown,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", DefaultAuditTopic),
		},
	}

	var err error
	if cfg.ProviderTimeout, err = durationEnv("PROVIDER_TIMEOUT", DefaultProviderTimeout); err != nil {
		return Server{}, err
	}
	if cfg.ReportCacheTTL, err = durationEnv("REPORT_CACHE_TTL", DefaultReportCacheTTL); err != nil {
		return Server{}, err
	}
	if cfg.CircuitFailureThreshold, err = intEnv("CIRCUIT_FAILURE_THRESHOLD", DefaultCircuitFailureThreshold); err != nil {
		return Server{}, err
	}

	if path := os.Getenv("PROVIDER_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read provider config: %w", err)
		}
		if err := cfg.ApplyOverlay(data); err != nil {
			return Server{}, err
		}
	}
	return cfg, nil
}

// Overlay is the YAML document accepted by PROVIDER_CONFIG_FILE. Credentials
// are never read from the file.
type Overlay struct {
	ProviderTimeout string            `yaml:"providerTimeout"`
	Order           []string          `yaml:"order"`
	Providers       []OverlayProvider `yaml:"providers"`
	Listings        []OverlayProvider `yaml:"listings"`
}

// OverlayProvider overrides one source's endpoint or timeout.
type OverlayProvider struct {
	ID      string `yaml:"id"`
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"`
}

// ApplyOverlay merges a YAML overlay into the configuration. Unknown IDs and
// invalid durations are errors; Order must name every provider exactly once.
func (s *Server) ApplyOverlay(data []byte) error {
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse provider config: %w", err)
	}

	if o.ProviderTimeout != "" {
		d, err := time.ParseDuration(o.ProviderTimeout)
		if err != nil {
			return fmt.Errorf("providerTimeout: %w", err)
		}
		s.ProviderTimeout = d
	}
	if err := mergeSources(s.Providers, o.Providers); err != nil {
		return err
	}
	if err := mergeSources(s.Listings, o.Listings); err != nil {
		return err
	}
	if len(o.Order) > 0 {
		ordered, err := reorder(s.Providers, o.Order)
		if err != nil {
			return err
		}
		s.Providers = ordered
	}
	return nil
}

func mergeSources(sources []ProviderConfig, overrides []OverlayProvider) error {
	for _, ov := range overrides {
		i := indexOf(sources, ov.ID)
		if i < 0 {
			return fmt.Errorf("provider config: unknown source %q", ov.ID)
		}
		if ov.BaseURL != "" {
			sources[i].BaseURL = ov.BaseURL
		}
		if ov.Timeout != "" {
			d, err := time.ParseDuration(ov.Timeout)
			if err != nil {
				return fmt.Errorf("provider config %s timeout: %w", ov.ID, err)
			}
			sources[i].Timeout = d
		}
	}
	return nil
}

func reorder(sources []ProviderConfig, order []string) ([]ProviderConfig, error) {
	if len(order) != len(sources) {
		return nil, fmt.Errorf("provider config: order must list all %d providers", len(sources))
	}
	out := make([]ProviderConfig, 0, len(sources))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		i := indexOf(sources, id)
		if i < 0 || seen[id] {
			return nil, fmt.Errorf("provider config: invalid order entry %q", id)
		}
		seen[id] = true
		out = append(out, sources[i])
	}
	return out, nil
}

func indexOf(sources []ProviderConfig, id string) int {
	for i, p := range sources {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return n, nil
}
