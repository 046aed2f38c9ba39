package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Enabled reports whether enough R2 settings are present to mirror media.
func (r R2) Enabled() bool {
	return r.AccountID != "" && r.AccessKey != "" && r.SecretKey != "" && r.BucketName != ""
}

type X struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
}

type DMM struct {
	APIID       string
	AffiliateID string
	Floor       string
}

type Schedule struct {
	Timezone    string
	PostsPerDay int
	StartHour   int
	EndHour     int
	BatchSize   int
}

type Cron struct {
	Dispatch     string
	Catalog      string
	Schedule     string
	TokenRefresh string
}

type Config struct {
	PostgresURI         string
	RedisURI            string
	Port                string
	SecretKey           string
	CookieName          string
	APIKey              string
	AllowedOrigins      []string
	MediaDir            string
	TransportTimeout    time.Duration
	DownloadTimeout     time.Duration
	DispatchConcurrency int
	BitlyAPIKey         string
	Schedule            Schedule
	Cron                Cron
	X                   X
	DMM                 DMM
	R2                  R2
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", "localhost:6379"),
		Port:                getEnv("PORT", "3000"),
		SecretKey:           getEnv("SECRET_KEY", ""),
		CookieName:          getEnv("COOKIE_NAME", "curapost_token"),
		APIKey:              getEnv("API_KEY", ""),
		AllowedOrigins:      getEnvList("ALLOWED_ORIGINS"),
		MediaDir:            getEnv("MEDIA_DIR", "static/images"),
		TransportTimeout:    getEnvDuration("TRANSPORT_TIMEOUT", 60*time.Second),
		DownloadTimeout:     getEnvDuration("DOWNLOAD_TIMEOUT", 60*time.Second),
		DispatchConcurrency: getEnvInt("DISPATCH_CONCURRENCY", 1),
		BitlyAPIKey:         getEnv("BITLY_API_KEY", ""),
		Schedule: Schedule{
			Timezone:    getEnv("TIMEZONE", "Asia/Tokyo"),
			PostsPerDay: getEnvInt("POSTS_PER_DAY", 3),
			StartHour:   getEnvInt("POST_START_HOUR", 9),
			EndHour:     getEnvInt("POST_END_HOUR", 22),
			BatchSize:   getEnvInt("SCHEDULE_BATCH_SIZE", 5),
		},
		Cron: Cron{
			Dispatch:     getEnv("DISPATCH_CRON", "@every 15m"),
			Catalog:      getEnv("CATALOG_CRON", "0 0 3 * * *"),
			Schedule:     getEnv("SCHEDULE_CRON", "0 0 4 * * *"),
			TokenRefresh: getEnv("TOKEN_REFRESH_CRON", "@every 10m"),
		},
		X: X{
			ClientID:     getEnv("X_CLIENT_ID", ""),
			ClientSecret: getEnv("X_CLIENT_SECRET", ""),
			AccessToken:  getEnv("X_ACCESS_TOKEN", ""),
			RefreshToken: getEnv("X_REFRESH_TOKEN", ""),
		},
		DMM: DMM{
			APIID:       getEnv("DMM_API_ID", ""),
			AffiliateID: getEnv("DMM_AFFILIATE_ID", ""),
			Floor:       getEnv("DMM_FLOOR", "videoa"),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
	}
}

// Validate checks the values the scheduler divides by or compares against.
func (c *Config) Validate() error {
	var errs []error

	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI is required"))
	}
	if len(c.SecretKey) != 32 {
		errs = append(errs, errors.New("SECRET_KEY must be 32 bytes"))
	}
	if c.Schedule.PostsPerDay < 1 {
		errs = append(errs, fmt.Errorf("POSTS_PER_DAY must be at least 1, got %d", c.Schedule.PostsPerDay))
	}
	if c.Schedule.StartHour < 0 || c.Schedule.EndHour > 24 || c.Schedule.StartHour >= c.Schedule.EndHour {
		errs = append(errs, fmt.Errorf("business hours must satisfy 0 <= start < end <= 24, got %d-%d",
			c.Schedule.StartHour, c.Schedule.EndHour))
	}
	if c.Schedule.BatchSize < 1 {
		errs = append(errs, errors.New("SCHEDULE_BATCH_SIZE must be at least 1"))
	}
	if c.DispatchConcurrency < 1 {
		errs = append(errs, errors.New("DISPATCH_CONCURRENCY must be at least 1"))
	}
	if c.TransportTimeout <= 0 || c.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Schedule.Timezone, err))
	}

	return errors.Join(errs...)
}

// AllowsOrigin reports whether a browser origin may call the API with credentials.
func (c *Config) AllowsOrigin(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Location returns the business time zone, falling back to UTC for an unknown name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimRight(strings.TrimSpace(v), "/"); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
