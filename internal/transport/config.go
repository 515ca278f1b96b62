// Package transport moves bytes and JSON between the uploader and the
// signed-URL endpoints. JSON calls carry a bounded exponential-backoff
// retry policy for transient statuses; raw byte transfers are never
// retried automatically.
package transport

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
)

// Config holds the signer-endpoint settings for a Client.
//
// Secret, BucketKey and BucketRegion are forwarded verbatim to the
// signed-URL endpoints; GetSignedURLEndpoint and DeleteEndpoint are the
// endpoints themselves. Zero durations and counts fall back to the
// defaults in internal/common.
type Config struct {
	Secret               string
	BucketKey            string
	BucketRegion         string
	GetSignedURLEndpoint string
	DeleteEndpoint       string

	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// withDefaults returns a copy of c with zero tunables replaced.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = common.DefaultRequestTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = common.DefaultMaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = common.DefaultRetryBaseDelay
	}
	return c
}

// Validate checks the fields every signed-URL call needs. It is called
// before any network traffic so misconfiguration fails fast.
func (c Config) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("%w: Secret", common.ErrMissingConfig)
	}
	if c.BucketKey == "" {
		return fmt.Errorf("%w: BucketKey", common.ErrMissingConfig)
	}
	if c.BucketRegion == "" {
		return fmt.Errorf("%w: BucketRegion", common.ErrMissingConfig)
	}
	if c.GetSignedURLEndpoint == "" {
		return fmt.Errorf("%w: GetSignedUrlEndpoint", common.ErrMissingConfig)
	}
	return nil
}

// validateDelete additionally requires the delete endpoint.
func (c Config) validateDelete() error {
	if c.DeleteEndpoint == "" {
		return fmt.Errorf("%w: DeleteEndpoint", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: Secret", common.ErrMissingConfig)
	}
	return nil
}
