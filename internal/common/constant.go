package common

import "time"

// Upload orchestration defaults. These are tunable configuration values,
// not behavioral contracts.
const (
	// DefaultMaxConcurrentUploads bounds simultaneous pipeline runs.
	DefaultMaxConcurrentUploads = 4

	// DefaultRequestTimeout is the ceiling for a single HTTP request,
	// including the raw byte transfer.
	DefaultRequestTimeout = 5 * time.Minute

	// DefaultMaxRetries bounds automatic retries of transient JSON calls.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the base for exponential backoff
	// (base * 2^attempt).
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultSettleDelay gives the record store time to register a just
	// created document before the reconciliation query runs.
	DefaultSettleDelay = 1 * time.Second

	// DefaultReconcileWindow batches reconciliation of uploads that
	// complete near-simultaneously into a single store query.
	DefaultReconcileWindow = 2 * time.Second
)
