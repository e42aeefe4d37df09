package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Settings carries everything the server reads from the environment.
type Settings struct {
	DatabaseURL  string
	RedisURL     string
	BindAddr     string
	ReportingURL string

	ReplayTTL        time.Duration
	MaxClockSkew     time.Duration
	MaxSubmissionAge time.Duration
}

// LoadConfig reads the settings from the environment. Only DATABASE_URL is
// required; everything else falls back to a default.
func LoadConfig() (*Settings, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}

	settings := &Settings{
		DatabaseURL:  databaseURL,
		RedisURL:     envOr("REDIS_URL", "redis://127.0.0.1/"),
		BindAddr:     envOr("BIND_ADDR", "0.0.0.0:8080"),
		ReportingURL: os.Getenv("REPORTING_URL"),
	}

	var err error
	if settings.ReplayTTL, err = envSeconds("REPLAY_TTL_SECONDS", 300); err != nil {
		return nil, err
	}
	if settings.MaxClockSkew, err = envSeconds("MAX_CLOCK_SKEW_SECONDS", 60); err != nil {
		return nil, err
	}
	if settings.MaxSubmissionAge, err = envSeconds("MAX_SUBMISSION_AGE_SECONDS", 300); err != nil {
		return nil, err
	}

	log.Debugln("Read server settings: ", settings.BindAddr, settings.RedisURL, settings.ReportingURL)

	return settings, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envSeconds(key string, fallback int64) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback) * time.Second, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
