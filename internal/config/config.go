package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CityMatchExact      = "exact"
	CityMatchNormalized = "normalized"

	ChangeFeedLocal    = "local"
	ChangeFeedPostgres = "postgres"
)

type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret       string
	SessionTTL      time.Duration
	ConfirmationTTL time.Duration

	GoogleMapsAPIKey string
	GeocodeTimeout   time.Duration
	GeocodeWorkers   int
	CityMatch        string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	ReminderSchedule string
	ReminderAfter    time.Duration

	MigrationsPath string
	ChangeFeed     string
	CORSOrigins    []string

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionTTL:        getDuration("SESSION_TTL", 24*time.Hour, &errs),
		ConfirmationTTL:   getDuration("CONFIRMATION_TTL", 5*time.Minute, &errs),
		GoogleMapsAPIKey:  getEnv("GOOGLE_MAPS_API_KEY", ""),
		GeocodeTimeout:    getDuration("GEOCODE_TIMEOUT", 5*time.Second, &errs),
		GeocodeWorkers:    getInt("GEOCODE_WORKERS", 4, &errs),
		CityMatch:         getEnv("CITY_MATCH", CityMatchExact),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "RentMyParking"),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:  getEnv("TWILIO_FROM_NUMBER", ""),
		ReminderSchedule:  getEnv("REMINDER_SCHEDULE", "@every 1h"),
		ReminderAfter:     getDuration("REMINDER_AFTER", 24*time.Hour, &errs),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "migrations"),
		ChangeFeed:        getEnv("CHANGE_FEED", ChangeFeedLocal),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "pretty"),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the settings every server start needs.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET not set"))
	}
	if c.GoogleMapsAPIKey == "" {
		errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY not set"))
	}
	if c.GeocodeWorkers < 1 {
		errs = append(errs, fmt.Errorf("GEOCODE_WORKERS must be positive, got %d", c.GeocodeWorkers))
	}
	switch c.CityMatch {
	case CityMatchExact, CityMatchNormalized:
	default:
		errs = append(errs, fmt.Errorf("CITY_MATCH must be %q or %q, got %q", CityMatchExact, CityMatchNormalized, c.CityMatch))
	}
	switch c.ChangeFeed {
	case ChangeFeedLocal, ChangeFeedPostgres:
	default:
		errs = append(errs, fmt.Errorf("CHANGE_FEED must be %q or %q, got %q", ChangeFeedLocal, ChangeFeedPostgres, c.ChangeFeed))
	}
	return errors.Join(errs...)
}

func (c *Config) SendGridEnabled() bool {
	return c.SendGridAPIKey != "" && c.SendGridFromEmail != ""
}

func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func getInt(key string, fallback int, errs *[]error) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
