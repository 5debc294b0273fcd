package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gexflow/models"
	"gexflow/processor"
)

// Duration decodes yaml values like "30s" or "5m" (or raw nanoseconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration value")
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Gexflow   AppConfig       `yaml:"gexflow"`
	Schwab    SchwabConfig    `yaml:"schwab"`
	Levels    LevelsConfig    `yaml:"levels"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Writer    WriterConfig    `yaml:"writer"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SchwabConfig struct {
	BaseURL        string               `yaml:"base_url"`
	TokenURL       string               `yaml:"token_url"`
	AppKey         string               `yaml:"app_key"`
	AppSecret      string               `yaml:"app_secret"`
	TokenFile      string               `yaml:"token_file"`
	Underlying     string               `yaml:"underlying"`
	FuturesSymbols []string             `yaml:"futures_symbols"`
	ChainHorizon   Duration             `yaml:"chain_horizon"`
	Timeout        Duration             `yaml:"timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	MaxConnsPerHost int      `yaml:"max_conns_per_host"`
	IdleConnTimeout Duration `yaml:"idle_conn_timeout"`
}

// LevelsConfig is the recognized tuning surface of the level engine.
type LevelsConfig struct {
	MinimumOI           int64   `yaml:"minimum_oi"`
	RoundTo             int64   `yaml:"round_to"`
	ZeroGammaSearchBand string  `yaml:"zero_gamma_search_band"` // fraction in (0,1] or "full"
	ExpirationScope     string  `yaml:"expiration_scope"`
	FallbackRatio       float64 `yaml:"fallback_ratio"`
}

type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`
}

type WriterConfig struct {
	Report  ReportConfig  `yaml:"report"`
	Archive ArchiveConfig `yaml:"archive"`
}

type ReportConfig struct {
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

type ArchiveConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Directory   string `yaml:"directory"`
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level      string           `yaml:"level"`
	Format     string           `yaml:"format"`
	Output     string           `yaml:"output"`
	MaxAge     int              `yaml:"max_age"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// LoadConfig reads, defaults and validates the yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Schwab: SchwabConfig{
			BaseURL:        "https://api.schwabapi.com",
			TokenURL:       "https://api.schwabapi.com/v1/oauth/token",
			TokenFile:      "tokens.json",
			Underlying:     "QQQ",
			FuturesSymbols: []string{"/NQ", "NQ"},
			ChainHorizon:   Duration(45 * 24 * time.Hour),
			Timeout:        Duration(15 * time.Second),
			RateLimit:      RateLimitConfig{RequestsPerSecond: 2, BurstSize: 4},
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    4,
				MaxConnsPerHost: 4,
				IdleConnTimeout: Duration(90 * time.Second),
			},
		},
		Levels: LevelsConfig{
			MinimumOI:           processor.DefaultMinimumOI,
			RoundTo:             processor.DefaultTickSize,
			ZeroGammaSearchBand: "0.05",
			ExpirationScope:     string(models.ScopeAllExpirations),
			FallbackRatio:       processor.DefaultFallbackRatio,
		},
		Scheduler: SchedulerConfig{Interval: Duration(5 * time.Minute)},
		Writer: WriterConfig{
			Report:  ReportConfig{Console: true},
			Archive: ArchiveConfig{Compression: "snappy"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Secrets come from the environment when present.
	if v := os.Getenv("SCHWAB_APP_KEY"); v != "" {
		config.Schwab.AppKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("SCHWAB_APP_SECRET"); v != "" {
		config.Schwab.AppSecret = strings.TrimSpace(v)
	}
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Params resolves the levels section into engine parameters.
func (c LevelsConfig) Params() (processor.Params, error) {
	scope, err := models.ParseExpirationScope(c.ExpirationScope)
	if err != nil {
		return processor.Params{}, err
	}

	band := 0.0
	switch s := strings.ToLower(strings.TrimSpace(c.ZeroGammaSearchBand)); s {
	case "", "full":
		band = 0
	default:
		band, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return processor.Params{}, fmt.Errorf("invalid zero_gamma_search_band %q: %w", c.ZeroGammaSearchBand, err)
		}
		if band <= 0 || band > 1 {
			return processor.Params{}, fmt.Errorf("zero_gamma_search_band %q outside (0, 1]", c.ZeroGammaSearchBand)
		}
	}

	return processor.Params{
		MinimumOI:     c.MinimumOI,
		TickSize:      c.RoundTo,
		SearchBand:    band,
		Scope:         scope,
		FallbackRatio: c.FallbackRatio,
	}, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Gexflow.Name == "" {
		return fmt.Errorf("gexflow.name is required")
	}
	if cfg.Schwab.Underlying == "" {
		return fmt.Errorf("schwab.underlying is required")
	}
	if cfg.Schwab.BaseURL == "" {
		return fmt.Errorf("schwab.base_url is required")
	}
	if cfg.Schwab.ChainHorizon <= 0 {
		return fmt.Errorf("schwab.chain_horizon must be greater than 0")
	}
	if cfg.Levels.MinimumOI < 0 {
		return fmt.Errorf("levels.minimum_oi must not be negative")
	}
	if cfg.Levels.RoundTo <= 0 {
		return fmt.Errorf("levels.round_to must be greater than 0")
	}
	if cfg.Levels.FallbackRatio <= 0 {
		return fmt.Errorf("levels.fallback_ratio must be greater than 0")
	}
	if _, err := cfg.Levels.Params(); err != nil {
		return err
	}
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
