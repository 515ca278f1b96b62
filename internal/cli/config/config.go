package config

import (
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
)

// Config holds runtime settings for the MediaVault uploader CLI.
type Config struct {
	Secret               string
	BucketKey            string
	BucketRegion         string
	SignURLEndpoint      string
	DeleteEndpoint       string
	DatabaseDSN          string
	RequestTimeout       time.Duration
	MaxRetries           int
	RetryBaseDelay       time.Duration
	MaxConcurrentUploads int
	SettleDelay          time.Duration
	ReconcileWindow      time.Duration
	StoreOriginalName    bool
}

// LoadDefaults populates c with sensible defaults. Endpoint addresses
// and credentials have no defaults and must come from JSON or flags.
func (c *Config) LoadDefaults() {
	c.RequestTimeout = common.DefaultRequestTimeout
	c.MaxRetries = common.DefaultMaxRetries
	c.RetryBaseDelay = common.DefaultRetryBaseDelay
	c.MaxConcurrentUploads = common.DefaultMaxConcurrentUploads
	c.SettleDelay = common.DefaultSettleDelay
	c.ReconcileWindow = common.DefaultReconcileWindow
	c.StoreOriginalName = true
}

// LoadConfig constructs a Config, applies defaults, then overlays
// values from JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
