package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full application configuration, populated from
// environment variables (a .env file is loaded by the root command).
// It is validated once at startup; components receive the struct and
// never read the environment themselves.
type Config struct {
	Shop     ShopConfig
	Upload   UploadConfig
	Category CategoryConfig
}

// ShopConfig holds the Channels Shop API credentials and endpoint.
type ShopConfig struct {
	AppID     string
	AppSecret string
	BaseURL   string
	Timeout   time.Duration
}

// UploadConfig holds the batch uploader knobs.
type UploadConfig struct {
	Concurrency   int           // worker pool size
	MinInterval   time.Duration // pacing gate between upload starts
	MaxAttempts   int           // total attempts per record, retries included
	RateLimitWait time.Duration // wait after a throttled response
	MinImages     int           // platform minimum head image count
	DefaultStock  int           // stock filled in when a record has none
	DeliverMethod int           // 0 express, 1 none, 3 virtual
}

// CategoryConfig holds the taxonomy cache settings.
type CategoryConfig struct {
	CacheFile   string
	TTL         time.Duration
	DefaultPath []string // fallback 3-level category id path, may be empty
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Shop: ShopConfig{
			AppID:     getEnv("WECHAT_APPID", ""),
			AppSecret: getEnv("WECHAT_APPSECRET", ""),
			BaseURL:   getEnv("WECHAT_API_BASE_URL", "https://api.weixin.qq.com"),
			Timeout:   getEnvDuration("WECHAT_API_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			Concurrency:   getEnvInt("UPLOAD_CONCURRENCY", 5),
			MinInterval:   getEnvDuration("UPLOAD_MIN_INTERVAL", time.Second),
			MaxAttempts:   getEnvInt("UPLOAD_MAX_ATTEMPTS", 3),
			RateLimitWait: getEnvDuration("UPLOAD_RATE_LIMIT_WAIT", 5*time.Second),
			MinImages:     getEnvInt("UPLOAD_MIN_IMAGES", 3),
			DefaultStock:  getEnvInt("UPLOAD_DEFAULT_STOCK", 999),
			DeliverMethod: getEnvInt("UPLOAD_DELIVER_METHOD", 3),
		},
		Category: CategoryConfig{
			CacheFile:   getEnv("CATEGORY_CACHE_FILE", "cache/categories.json"),
			TTL:         getEnvDuration("CATEGORY_CACHE_TTL", 24*time.Hour),
			DefaultPath: getEnvList("CATEGORY_DEFAULT_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration invariants. A violation here is fatal:
// nothing has been uploaded yet and nothing should be.
func (c *Config) Validate() error {
	if c.Shop.AppID == "" {
		return fmt.Errorf("WECHAT_APPID must be set")
	}
	if c.Shop.AppSecret == "" {
		return fmt.Errorf("WECHAT_APPSECRET must be set")
	}
	if !strings.HasPrefix(c.Shop.BaseURL, "http") {
		return fmt.Errorf("WECHAT_API_BASE_URL must be an http(s) URL, got %q", c.Shop.BaseURL)
	}
	if c.Upload.Concurrency < 1 || c.Upload.Concurrency > 20 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be between 1 and 20, got %d", c.Upload.Concurrency)
	}
	if c.Upload.MaxAttempts < 1 || c.Upload.MaxAttempts > 10 {
		return fmt.Errorf("UPLOAD_MAX_ATTEMPTS must be between 1 and 10, got %d", c.Upload.MaxAttempts)
	}
	if c.Upload.MinInterval < 0 || c.Upload.MinInterval > time.Minute {
		return fmt.Errorf("UPLOAD_MIN_INTERVAL must be between 0 and 1m, got %s", c.Upload.MinInterval)
	}
	if c.Upload.MinImages < 1 || c.Upload.MinImages > 9 {
		return fmt.Errorf("UPLOAD_MIN_IMAGES must be between 1 and 9, got %d", c.Upload.MinImages)
	}
	if n := len(c.Category.DefaultPath); n != 0 && n != 3 {
		return fmt.Errorf("CATEGORY_DEFAULT_PATH must list exactly 3 category ids, got %d", n)
	}
	switch c.Upload.DeliverMethod {
	case 0, 1, 3:
	default:
		return fmt.Errorf("UPLOAD_DELIVER_METHOD must be 0, 1 or 3, got %d", c.Upload.DeliverMethod)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
