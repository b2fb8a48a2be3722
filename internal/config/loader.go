package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage engines selectable through PARKING_STORAGE.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config captures environment driven configuration values for the parking service.
type Config struct {
	HTTPPort     int
	Storage      string
	SQLiteDSN    string
	TokenSecret  string
	TokenTTL     time.Duration
	// CheckInGrace is how many seconds before a reservation starts check-in is accepted.
	CheckInGrace int64
	CORSOrigins  []string
	LogLevel     string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Missing and invalid entries are
// collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		Storage:      StorageSQLite,
		SQLiteDSN:    "parking.db",
		TokenTTL:     24 * time.Hour,
		CheckInGrace: int64((15 * time.Minute) / time.Second),
		LogLevel:     "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PARKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port < 0 || port > 65535 {
			invalid = append(invalid, "PARKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storage := strings.ToLower(strings.TrimSpace(os.Getenv("PARKING_STORAGE"))); storage != "" {
		switch storage {
		case StorageSQLite, StorageMemory:
			cfg.Storage = storage
		default:
			invalid = append(invalid, "PARKING_STORAGE")
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PARKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("PARKING_TOKEN_SECRET")); secret == "" {
		missing = append(missing, "PARKING_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("PARKING_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PARKING_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if graceValue := strings.TrimSpace(os.Getenv("PARKING_CHECKIN_GRACE")); graceValue != "" {
		grace, err := time.ParseDuration(graceValue)
		if err != nil || grace < 0 {
			invalid = append(invalid, "PARKING_CHECKIN_GRACE")
		} else {
			cfg.CheckInGrace = int64(grace / time.Second)
		}
	}

	if origins := strings.TrimSpace(os.Getenv("PARKING_CORS_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	if level := strings.ToLower(strings.TrimSpace(os.Getenv("PARKING_LOG_LEVEL"))); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "PARKING_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
