package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Deals     DealsConfig     `mapstructure:"deals"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// StorageConfig holds the deal database settings. An empty DSN disables
// persistence.
type StorageConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LoggingConfig selects the zap encoder
type LoggingConfig struct {
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// DealsConfig holds the selection parameters of the deal detector
type DealsConfig struct {
	MinDiscountPercent        int            `mapstructure:"min_discount_percent"`
	TargetDealCount           int            `mapstructure:"target_deal_count"`
	MaxSameBrandTotal         int            `mapstructure:"max_same_brand_total"`
	MaxSameBrandPerDispensary int            `mapstructure:"max_same_brand_per_dispensary"`
	MaxSameDispensaryTotal    int            `mapstructure:"max_same_dispensary_total"`
	BackfillCapMultiplier     int            `mapstructure:"backfill_cap_multiplier"`
	SimilarityThreshold       float64        `mapstructure:"similarity_threshold"`
	CategoryTargets           map[string]int `mapstructure:"category_targets"`
	PremiumBrands             []string       `mapstructure:"premium_brands"` // empty keeps the built-in list
	ParseConcurrency          int            `mapstructure:"parse_concurrency"`
}

// Load loads configuration from a .env file, environment variables and
// config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/budwatch/")

	// Environment variable settings
	v.SetEnvPrefix("BUDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "budwatch:")
	v.SetDefault("cache.ttl", "6h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Storage defaults
	v.SetDefault("storage.dsn", "budwatch.db")

	// Logging defaults
	v.SetDefault("logging.mode", "development")

	// Deal selection defaults
	v.SetDefault("deals.min_discount_percent", 15)
	v.SetDefault("deals.target_deal_count", 200)
	v.SetDefault("deals.max_same_brand_total", 12)
	v.SetDefault("deals.max_same_brand_per_dispensary", 4)
	v.SetDefault("deals.max_same_dispensary_total", 25)
	v.SetDefault("deals.backfill_cap_multiplier", 2)
	v.SetDefault("deals.similarity_threshold", 0.92)
	v.SetDefault("deals.category_targets", map[string]int{
		"flower":      60,
		"vape":        50,
		"edible":      30,
		"concentrate": 30,
		"preroll":     30,
	})
	v.SetDefault("deals.premium_brands", []string{})
	v.SetDefault("deals.parse_concurrency", 8)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit.per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	d := config.Deals
	if d.TargetDealCount <= 0 {
		return fmt.Errorf("deals.target_deal_count must be positive, got: %d", d.TargetDealCount)
	}
	if d.MaxSameBrandTotal <= 0 || d.MaxSameBrandPerDispensary <= 0 || d.MaxSameDispensaryTotal <= 0 {
		return fmt.Errorf("deals diversity caps must be positive")
	}
	if d.BackfillCapMultiplier < 1 {
		return fmt.Errorf("deals.backfill_cap_multiplier must be at least 1, got: %d", d.BackfillCapMultiplier)
	}
	if d.SimilarityThreshold <= 0 || d.SimilarityThreshold > 1 {
		return fmt.Errorf("deals.similarity_threshold must be in (0, 1], got: %v", d.SimilarityThreshold)
	}
	if d.MinDiscountPercent < 0 || d.MinDiscountPercent > 100 {
		return fmt.Errorf("deals.min_discount_percent must be in [0, 100], got: %d", d.MinDiscountPercent)
	}

	return nil
}
