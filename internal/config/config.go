package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, read once from the environment in
// main and passed down explicitly.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string

	LogLevel string
	LogFile  string

	Retention RetentionConfig
}

// RetentionConfig fixes the sweep triggers. All hours are wall-clock in UTC,
// the reference timezone for every schedule.
type RetentionConfig struct {
	// Account-erasure sweep: daily at this hour.
	ErasureHour int
	// Stale-data sweep: weekly at this day and hour.
	StaleDataDay  time.Weekday
	StaleDataHour int
	// Expired-story sweep: fixed interval.
	StorySweepEvery time.Duration
	// Consent-log retention sweep: daily at this hour.
	ConsentLogHour int
	// How often the scheduler polls for due jobs.
	Tick time.Duration
}

// Load reads configuration from the environment. DATABASE_URL takes
// precedence; otherwise the DSN is assembled from DB_* parts.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:       getEnvOrDefault("LOG_FILE", "server.log"),
		Retention: RetentionConfig{
			ErasureHour:     getEnvInt("RETENTION_ERASURE_HOUR", 2),
			StaleDataDay:    getEnvWeekday("RETENTION_STALE_DATA_DAY", time.Monday),
			StaleDataHour:   getEnvInt("RETENTION_STALE_DATA_HOUR", 3),
			StorySweepEvery: getEnvDuration("RETENTION_STORY_SWEEP_EVERY", 6*time.Hour),
			ConsentLogHour:  getEnvInt("RETENTION_CONSENT_LOG_HOUR", 4),
			Tick:            getEnvDuration("RETENTION_TICK", time.Minute),
		},
	}

	if cfg.DatabaseURL == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := os.Getenv("DB_PASSWORD")
		dbname := getEnvOrDefault("DB_NAME", "nexus_social")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvWeekday(key string, defaultValue time.Weekday) time.Weekday {
	value := strings.ToLower(os.Getenv(key))
	days := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	if d, ok := days[value]; ok {
		return d
	}
	return defaultValue
}
