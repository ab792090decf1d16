// README: Layered config (defaults < YAML file < env) for HTTP, storage, providers, model and budget.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the optional YAML config file.
const PathEnvVar = "VIBE_CONFIG"

type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type DBConfig struct {
	// DSN enables the Postgres taxonomy source and quota; empty disables both.
	DSN string `koanf:"dsn"`
}

type RedisConfig struct {
	// Addr enables the provider response cache; empty disables it.
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"gte=0"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gt=0"`
}

type AIConfig struct {
	GeminiKey string `koanf:"gemini_key"`
	Model     string `koanf:"model" validate:"required"`
}

// ProviderConfig configures one venue source and its limiter and breaker.
type ProviderConfig struct {
	Enabled          bool          `koanf:"enabled"`
	APIKey           string        `koanf:"api_key"`
	URL              string        `koanf:"url"`
	MaxCalls         int           `koanf:"max_calls" validate:"gte=0"`
	RatePerSecond    float64       `koanf:"rate_per_second" validate:"gte=0"`
	Burst            int           `koanf:"burst" validate:"gte=0"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gte=0"`
}

type ProvidersConfig struct {
	Google      ProviderConfig `koanf:"google"`
	Overpass    ProviderConfig `koanf:"overpass"`
	OpenTripMap ProviderConfig `koanf:"opentripmap"`
	Language    string         `koanf:"language"`
	HTTPTimeout time.Duration  `koanf:"http_timeout" validate:"gt=0"`
}

type WeatherConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true"`
}

type BudgetConfig struct {
	MaxTotalCalls         int           `koanf:"max_total_calls" validate:"gte=0"`
	MaxConcurrentCalls    int           `koanf:"max_concurrent_calls" validate:"gte=1"`
	TimeoutPerCall        time.Duration `koanf:"timeout_per_call" validate:"gt=0"`
	MaxTotalExecutionTime time.Duration `koanf:"max_total_execution_time" validate:"gt=0"`
}

type CurationConfig struct {
	ModelTimeout        time.Duration `koanf:"model_timeout" validate:"gt=0"`
	RetryBackoff        time.Duration `koanf:"retry_backoff" validate:"gte=0"`
	MaxPromptCandidates int           `koanf:"max_prompt_candidates" validate:"gte=5"`
}

type TaxonomyConfig struct {
	// Path loads the taxonomy from a JSON file; empty reads it from the database.
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	DB        DBConfig        `koanf:"db"`
	Redis     RedisConfig     `koanf:"redis"`
	AI        AIConfig        `koanf:"ai"`
	Providers ProvidersConfig `koanf:"providers"`
	Weather   WeatherConfig   `koanf:"weather"`
	Budget    BudgetConfig    `koanf:"budget"`
	Curation  CurationConfig  `koanf:"curation"`
	Taxonomy  TaxonomyConfig  `koanf:"taxonomy"`
	Log       LogConfig       `koanf:"log"`
}

func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{CacheTTL: 6 * time.Hour},
		AI:    AIConfig{Model: "gemini-2.0-flash"},
		Providers: ProvidersConfig{
			Google: ProviderConfig{
				Enabled: true, MaxCalls: 12,
				RatePerSecond: 10, Burst: 10, FailureThreshold: 5, OpenTimeout: 30 * time.Second,
			},
			Overpass: ProviderConfig{
				Enabled: true, URL: "https://overpass-api.de/api/interpreter", MaxCalls: 5,
				RatePerSecond: 1, Burst: 2, FailureThreshold: 3, OpenTimeout: 60 * time.Second,
			},
			OpenTripMap: ProviderConfig{
				Enabled: true, URL: "https://api.opentripmap.com/0.1/en", MaxCalls: 8,
				RatePerSecond: 5, Burst: 5, FailureThreshold: 5, OpenTimeout: 30 * time.Second,
			},
			Language:    "en",
			HTTPTimeout: 15 * time.Second,
		},
		Weather: WeatherConfig{Enabled: true, URL: "https://api.open-meteo.com/v1/forecast"},
		Budget: BudgetConfig{
			MaxTotalCalls:         25,
			MaxConcurrentCalls:    4,
			TimeoutPerCall:        10 * time.Second,
			MaxTotalExecutionTime: 60 * time.Second,
		},
		Curation: CurationConfig{
			ModelTimeout:        20 * time.Second,
			RetryBackoff:        500 * time.Millisecond,
			MaxPromptCandidates: 30,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// envKeys maps environment variables to config paths. Unlisted variables are ignored.
var envKeys = map[string]string{
	"vibe_http_addr":             "http.addr",
	"vibe_http_read_timeout":     "http.read_timeout",
	"vibe_http_write_timeout":    "http.write_timeout",
	"vibe_http_shutdown_timeout": "http.shutdown_timeout",

	"vibe_db_dsn":          "db.dsn",
	"vibe_redis_addr":      "redis.addr",
	"vibe_redis_password":  "redis.password",
	"vibe_redis_db":        "redis.db",
	"vibe_cache_ttl":       "redis.cache_ttl",
	"vibe_taxonomy_path":   "taxonomy.path",
	"gemini_api_key":       "ai.gemini_key",
	"vibe_ai_model":        "ai.model",
	"vibe_weather_enabled": "weather.enabled",
	"vibe_weather_url":     "weather.url",

	"google_maps_api_key":         "providers.google.api_key",
	"vibe_google_enabled":         "providers.google.enabled",
	"vibe_google_max_calls":       "providers.google.max_calls",
	"vibe_overpass_enabled":       "providers.overpass.enabled",
	"vibe_overpass_url":           "providers.overpass.url",
	"vibe_overpass_max_calls":     "providers.overpass.max_calls",
	"opentripmap_api_key":         "providers.opentripmap.api_key",
	"vibe_opentripmap_enabled":    "providers.opentripmap.enabled",
	"vibe_opentripmap_url":        "providers.opentripmap.url",
	"vibe_opentripmap_max_calls":  "providers.opentripmap.max_calls",
	"vibe_providers_language":     "providers.language",
	"vibe_providers_http_timeout": "providers.http_timeout",

	"vibe_budget_max_total_calls":      "budget.max_total_calls",
	"vibe_budget_max_concurrent_calls": "budget.max_concurrent_calls",
	"vibe_budget_timeout_per_call":     "budget.timeout_per_call",
	"vibe_budget_max_execution_time":   "budget.max_total_execution_time",

	"vibe_curation_model_timeout":  "curation.model_timeout",
	"vibe_curation_retry_backoff":  "curation.retry_backoff",
	"vibe_curation_max_candidates": "curation.max_prompt_candidates",

	"vibe_log_level":  "log.level",
	"vibe_log_format": "log.format",
}

func envKey(key string) string {
	return envKeys[strings.ToLower(key)]
}

var validate = validator.New()

// Load layers defaults, the file named by VIBE_CONFIG and the environment.
func Load() (Config, error) {
	return LoadFile(os.Getenv(PathEnvVar))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}
