package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	// Environment name (development, test, production)
	Env string `yaml:"env"`

	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Identity token verification
	Auth AuthConfig `yaml:"auth"`

	// Redis cache, disabled when URL is empty
	Redis RedisConfig `yaml:"redis"`

	// Cache settings for public reads
	Cache CacheConfig `yaml:"cache"`

	// Rate limiting of editorial routes
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Curation and widget settings
	Curation CurationConfig `yaml:"curation"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Name         string        `yaml:"name"`
	SSLMode      string        `yaml:"sslmode"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxLifetime  time.Duration `yaml:"max_lifetime"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// RedisConfig holds the cache connection
type RedisConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig holds cache TTLs
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RateLimitConfig holds token bucket settings for editorial routes
type RateLimitConfig struct {
	RPS             float64       `yaml:"rps"`
	Burst           int           `yaml:"burst"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// CurationConfig holds curation and widget limits
type CurationConfig struct {
	BulkFillMax    int                      `yaml:"bulk_fill_max"`
	ByIDsMax       int                      `yaml:"by_ids_max"`
	EmbedProviders map[string]EmbedProvider `yaml:"embed_providers"`
}

// EmbedProvider lists the hosts (and optional path prefix) an embed provider may point at
type EmbedProvider struct {
	Hosts      []string `yaml:"hosts"`
	PathPrefix string   `yaml:"path_prefix"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "pretty"
}

// DefaultEmbedProviders is the embed allow-list used when none is configured
func DefaultEmbedProviders() map[string]EmbedProvider {
	return map[string]EmbedProvider{
		"youtube":    {Hosts: []string{"youtube.com", "www.youtube.com", "www.youtube-nocookie.com"}},
		"vimeo":      {Hosts: []string{"player.vimeo.com"}},
		"spotify":    {Hosts: []string{"open.spotify.com"}, PathPrefix: "/embed/"},
		"soundcloud": {Hosts: []string{"w.soundcloud.com"}},
		"twitter":    {Hosts: []string{"twitter.com", "platform.twitter.com", "x.com"}},
	}
}

// Load reads .env files, an optional YAML overlay and environment variables
func Load() (*Config, error) {
	loadDotEnvs(getEnv("APP_ENV", "development"))

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Env = getEnv("APP_ENV", orDefault(cfg.Env, "development"))
	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", orDefault(cfg.Server.Port, "8080")),
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", orDuration(cfg.Server.ReadTimeout, 15*time.Second)),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", orDuration(cfg.Server.WriteTimeout, 15*time.Second)),
		ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", orDuration(cfg.Server.ShutdownTimeout, 30*time.Second)),
		CORSOrigins:     getListEnv("CORS_ORIGINS", cfg.Server.CORSOrigins),
	}
	cfg.Database = DatabaseConfig{
		Host:         getEnv("DB_HOST", orDefault(cfg.Database.Host, "localhost")),
		Port:         getEnv("DB_PORT", orDefault(cfg.Database.Port, "5432")),
		User:         getEnv("DB_USER", orDefault(cfg.Database.User, "postgres")),
		Password:     getEnv("DB_PASSWORD", orDefault(cfg.Database.Password, "postgres")),
		Name:         getEnv("DB_NAME", orDefault(cfg.Database.Name, "editorial")),
		SSLMode:      getEnv("DB_SSLMODE", orDefault(cfg.Database.SSLMode, "disable")),
		MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", orInt(cfg.Database.MaxOpenConns, 25)),
		MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", orInt(cfg.Database.MaxIdleConns, 5)),
		MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", orDuration(cfg.Database.MaxLifetime, 5*time.Minute)),
	}
	cfg.Auth = AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", orDefault(cfg.Auth.JWTSecret, defaultJWTSecret)),
		Issuer:    getEnv("JWT_ISSUER", cfg.Auth.Issuer),
	}
	cfg.Redis = RedisConfig{
		URL: getEnv("REDIS_URL", cfg.Redis.URL),
	}
	cfg.Cache = CacheConfig{
		TTL: getDurationEnv("CACHE_TTL", orDuration(cfg.Cache.TTL, 30*time.Second)),
	}
	cfg.RateLimit = RateLimitConfig{
		RPS:             getFloatEnv("RATE_LIMIT_RPS", orFloat(cfg.RateLimit.RPS, 5)),
		Burst:           getIntEnv("RATE_LIMIT_BURST", orInt(cfg.RateLimit.Burst, 20)),
		CleanupInterval: getDurationEnv("RATE_LIMIT_CLEANUP", orDuration(cfg.RateLimit.CleanupInterval, 5*time.Minute)),
	}
	cfg.Curation.BulkFillMax = getIntEnv("CURATION_BULK_FILL_MAX", orInt(cfg.Curation.BulkFillMax, 50))
	cfg.Curation.ByIDsMax = getIntEnv("CURATION_BY_IDS_MAX", orInt(cfg.Curation.ByIDsMax, 50))
	if len(cfg.Curation.EmbedProviders) == 0 {
		cfg.Curation.EmbedProviders = DefaultEmbedProviders()
	}
	cfg.Log = LogConfig{
		Level:  getEnv("LOG_LEVEL", orDefault(cfg.Log.Level, "info")),
		Format: getEnv("LOG_FORMAT", orDefault(cfg.Log.Format, "json")),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Env != "development" && c.Env != "test" && c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	if c.Curation.BulkFillMax <= 0 {
		return fmt.Errorf("CURATION_BULK_FILL_MAX must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// loadDotEnvs loads .env files, most specific first; godotenv never overrides a set variable
func loadDotEnvs(env string) {
	_ = godotenv.Load(".env." + env + ".local")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}
