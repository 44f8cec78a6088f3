package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	API       API
	Typeahead Typeahead
	Session   Session
	Fixture   Fixture
	LogLevel  string
}

type API struct {
	BaseURL        string
	SearchEndpoint string
	Timeout        time.Duration
	SessionID      string
	CSRFToken      string
	CSRFCookieName string
	CSRFHeaderName string
}

type Typeahead struct {
	MinChars int
	DelayMs  int
}

type Session struct {
	GuardStale bool
	AlertTTL   time.Duration
}

// Fixture controls the in-process API used when OFFLINE is set.
type Fixture struct {
	Offline bool
	Port    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("API_SEARCH_ENDPOINT", "/api/student-name-search/")
	v.SetDefault("API_TIMEOUT", "0s")
	v.SetDefault("CSRF_COOKIE_NAME", "csrftoken")
	v.SetDefault("CSRF_HEADER_NAME", "X-CSRFToken")
	v.SetDefault("TYPEAHEAD_MIN_CHARS", 2)
	v.SetDefault("TYPEAHEAD_DELAY_MS", 300)
	v.SetDefault("SESSION_GUARD_STALE", true)
	v.SetDefault("ALERT_TTL", "5s")
	v.SetDefault("OFFLINE", false)
	v.SetDefault("FIXTURE_PORT", "8089")
	v.SetDefault("LOG_LEVEL", "info")
}

func NewConfig() (*Config, error) {
	return Load(viper.New(), ".")
}

// Load reads .env from path (when present) and the process environment.
func Load(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(path)

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.API.BaseURL = v.GetString("API_BASE_URL")
	config.API.SearchEndpoint = v.GetString("API_SEARCH_ENDPOINT")
	config.API.Timeout = v.GetDuration("API_TIMEOUT")
	config.API.SessionID = v.GetString("API_SESSION_ID")
	config.API.CSRFToken = v.GetString("API_CSRF_TOKEN")
	config.API.CSRFCookieName = v.GetString("CSRF_COOKIE_NAME")
	config.API.CSRFHeaderName = v.GetString("CSRF_HEADER_NAME")

	config.Typeahead.MinChars = v.GetInt("TYPEAHEAD_MIN_CHARS")
	config.Typeahead.DelayMs = v.GetInt("TYPEAHEAD_DELAY_MS")

	config.Session.GuardStale = v.GetBool("SESSION_GUARD_STALE")
	config.Session.AlertTTL = v.GetDuration("ALERT_TTL")

	config.Fixture.Offline = v.GetBool("OFFLINE")
	config.Fixture.Port = v.GetString("FIXTURE_PORT")
	if config.Fixture.Offline {
		config.API.BaseURL = "http://localhost:" + config.Fixture.Port
	}

	config.LogLevel = v.GetString("LOG_LEVEL")

	log.Info().
		Str("baseURL", config.API.BaseURL).
		Int("minChars", config.Typeahead.MinChars).
		Int("delayMs", config.Typeahead.DelayMs).
		Bool("offline", config.Fixture.Offline).
		Msg("Config loaded")
	return &config, nil
}
