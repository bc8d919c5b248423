package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string             `yaml:"port"`
	LogLevel                 string             `yaml:"logLevel"`
	DatabaseURL              string             `yaml:"databaseURL"`
	RedisAddr                string             `yaml:"redisAddr"`
	RedisPassword            string             `yaml:"redisPassword"`
	SessionTTL               string             `yaml:"sessionTTL"`
	JWTSecret                string             `yaml:"jwtSecret"`
	TMDBAPIKey               string             `yaml:"tmdbAPIKey"`
	TMDBBaseURL              string             `yaml:"tmdbBaseURL"`
	PosterQuality            string             `yaml:"posterQuality"`
	SearchRateLimitPerMinute int                `yaml:"searchRateLimitPerMinute"`
	ViewCacheTTLSeconds      int                `yaml:"viewCacheTTLSeconds"`
	TrustedProxyCIDRs        []string           `yaml:"trustedProxyCidrs"`
	PosterMirror             PosterMirrorConfig `yaml:"posterMirror"`
}

// PosterMirrorConfig configures the optional object-storage poster mirror.
// The mirror is disabled when Endpoint is empty.
type PosterMirrorConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		cfg.TMDBAPIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("TMDB_BASE_URL"); v != "" {
		cfg.TMDBBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("MOVIELIST_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MOVIELIST_SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("MOVIELIST_POSTER_QUALITY"); v != "" {
		cfg.PosterQuality = strings.TrimSpace(v)
	}
	if v := os.Getenv("MOVIELIST_SEARCH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SearchRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("MOVIELIST_VIEW_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.ViewCacheTTLSeconds = n
		}
	}
	if v := os.Getenv("MOVIELIST_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.PosterMirror.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.PosterMirror.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.PosterMirror.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.PosterMirror.Bucket = strings.TrimSpace(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	// A missing provider credential fails here rather than surfacing later as a
	// provider 401 on the first search.
	if strings.TrimSpace(cfg.TMDBAPIKey) == "" {
		return errors.New("config: tmdbAPIKey is required (set in config.yaml or TMDB_API_KEY)")
	}
	if cfg.SearchRateLimitPerMinute < 0 {
		return errors.New("config: searchRateLimitPerMinute must be >= 0")
	}
	if cfg.ViewCacheTTLSeconds < 0 {
		return errors.New("config: viewCacheTTLSeconds must be >= 0")
	}
	if cfg.PosterMirror.Endpoint != "" {
		if cfg.PosterMirror.AccessKey == "" || cfg.PosterMirror.SecretKey == "" || cfg.PosterMirror.Bucket == "" {
			return errors.New("config: posterMirror requires accessKey, secretKey and bucket when endpoint is set")
		}
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}
