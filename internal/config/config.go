package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/invsync/inventory-sync-server/internal/target"
)

// TargetConfig is the YAML shape of one configured target.
type TargetConfig struct {
	BaseURL      string  `yaml:"base_url"`
	ListPath     string  `yaml:"list_path"`
	Token        string  `yaml:"token"`
	Secret       string  `yaml:"secret"`
	Algorithm    string  `yaml:"algorithm"`     // "sha1" (default) or "sha256"
	VendorPrefix string  `yaml:"vendor_prefix"` // default "oneflow"
	SuccessFlag  bool    `yaml:"success_flag"`
	PageSize     int     `yaml:"page_size"`
	MaxPages     int     `yaml:"max_pages"`
	MaxRetries   int     `yaml:"max_retries"`
	BackoffMs    int     `yaml:"backoff_ms"`
	BackoffMaxMs int     `yaml:"backoff_max_ms"`
	RateLimit    float64 `yaml:"rate_limit"` // listing requests per second, 0 = unlimited
	TimeoutSec   int     `yaml:"timeout_seconds"`

	CacheSliding  string `yaml:"cache_sliding"`  // e.g. "4h"
	CacheAbsolute string `yaml:"cache_absolute"` // e.g. "10h"
}

// Config is the process configuration.
type Config struct {
	Listen      string                  `yaml:"listen"`
	APIKey      string                  `yaml:"api_key"`
	HistorySize int                     `yaml:"history_size"`
	Targets     map[string]TargetConfig `yaml:"targets"`
}

// Load reads and validates the configuration file. Any missing required
// credential fails here, at startup, rather than on a later request.
func Load(filename string) (*Config, []*target.Credentials, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if len(cfg.Targets) == 0 {
		return nil, nil, fmt.Errorf("no targets configured")
	}

	creds := make([]*target.Credentials, 0, len(cfg.Targets))
	for name, tc := range cfg.Targets {
		c, err := tc.credentials(name)
		if err != nil {
			return nil, nil, err
		}
		creds = append(creds, c)
	}

	return cfg, creds, nil
}

func (tc TargetConfig) credentials(name string) (*target.Credentials, error) {
	alg, err := target.ParseAlgorithm(tc.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}

	sliding, err := durationOrDefault(tc.CacheSliding, 4*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("target %s: cache_sliding: %w", name, err)
	}
	absolute, err := durationOrDefault(tc.CacheAbsolute, 10*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("target %s: cache_absolute: %w", name, err)
	}

	c := &target.Credentials{
		Name:           name,
		BaseURL:        tc.BaseURL,
		ListPath:       tc.ListPath,
		Token:          tc.Token,
		Secret:         tc.Secret,
		Algorithm:      alg,
		VendorPrefix:   tc.VendorPrefix,
		SuccessFlag:    tc.SuccessFlag,
		PageSize:       tc.PageSize,
		MaxPages:       tc.MaxPages,
		MaxRetries:     tc.MaxRetries,
		BackoffMs:      tc.BackoffMs,
		BackoffMaxMs:   tc.BackoffMaxMs,
		RateLimit:      tc.RateLimit,
		TimeoutSeconds: tc.TimeoutSec,
		CacheSliding:   sliding,
		CacheAbsolute:  absolute,
	}

	if c.ListPath == "" {
		c.ListPath = "/api/stock"
	}
	if c.VendorPrefix == "" {
		c.VendorPrefix = "oneflow"
	}
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.BackoffMs <= 0 {
		c.BackoffMs = 500
	}
	if c.BackoffMaxMs <= 0 {
		c.BackoffMaxMs = 5000
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func durationOrDefault(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", s)
	}
	return d, nil
}
