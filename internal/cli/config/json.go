package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/flagx"
	"github.com/dmitrijs2005/mediavault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It
// relies on timex.Duration so intervals can be given as "3s" strings
// or integer nanoseconds.
type JsonConfig struct {
	Secret               string         `json:"secret"`
	BucketKey            string         `json:"bucket_key"`
	BucketRegion         string         `json:"bucket_region"`
	SignURLEndpoint      string         `json:"sign_url_endpoint"`
	DeleteEndpoint       string         `json:"delete_endpoint"`
	DatabaseDSN          string         `json:"database_dsn"`
	RequestTimeout       timex.Duration `json:"request_timeout"`
	MaxRetries           *int           `json:"max_retries"`
	RetryBaseDelay       timex.Duration `json:"retry_base_delay"`
	MaxConcurrentUploads *int           `json:"max_concurrent_uploads"`
	SettleDelay          timex.Duration `json:"settle_delay"`
	ReconcileWindow      timex.Duration `json:"reconcile_window"`
	StoreOriginalName    *bool          `json:"store_original_name"`
}

// parseJson overlays cfg with values loaded from the JSON file named
// by the -c or -config flags. When no file is named it is a no-op.
// Absent JSON fields leave the existing value untouched. Panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Secret != "" {
		cfg.Secret = jc.Secret
	}
	if jc.BucketKey != "" {
		cfg.BucketKey = jc.BucketKey
	}
	if jc.BucketRegion != "" {
		cfg.BucketRegion = jc.BucketRegion
	}
	if jc.SignURLEndpoint != "" {
		cfg.SignURLEndpoint = jc.SignURLEndpoint
	}
	if jc.DeleteEndpoint != "" {
		cfg.DeleteEndpoint = jc.DeleteEndpoint
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
	if jc.RetryBaseDelay.Duration != 0 {
		cfg.RetryBaseDelay = time.Duration(jc.RetryBaseDelay.Duration)
	}
	if jc.MaxConcurrentUploads != nil {
		cfg.MaxConcurrentUploads = *jc.MaxConcurrentUploads
	}
	if jc.SettleDelay.Duration != 0 {
		cfg.SettleDelay = time.Duration(jc.SettleDelay.Duration)
	}
	if jc.ReconcileWindow.Duration != 0 {
		cfg.ReconcileWindow = time.Duration(jc.ReconcileWindow.Duration)
	}
	if jc.StoreOriginalName != nil {
		cfg.StoreOriginalName = *jc.StoreOriginalName
	}
}
