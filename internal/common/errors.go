// Package common defines shared constants and sentinel errors used across
// the uploader and signer layers of MediaVault. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Configuration errors: a required transport field is missing. These
	// fail before any network call and are never retried.
	ErrMissingConfig = errors.New("missing required config field")

	// Input errors.
	ErrUnreadableFile = errors.New("unreadable file")

	// Transport errors.
	ErrInvalidSignedURL = errors.New("invalid signed URL received from endpoint")
	ErrRetriesExhausted = errors.New("retries exhausted")

	// Auth errors (signer service).
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// Upload lifecycle errors.
	ErrUploadCancelled = errors.New("upload cancelled")
)
