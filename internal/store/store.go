// Package store persists asset records. The pipeline treats it as a
// simple keyed store addressed by the deterministic document ID; the
// reconciliation sweep additionally needs one batched fingerprint
// lookup.
package store

import (
	"context"

	"github.com/dmitrijs2005/mediavault/internal/asset"
)

// Store is the document store consumed by the upload pipeline and the
// reconciliation sweep.
type Store interface {
	// Get returns the record stored under id, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*asset.Record, error)

	// Create persists rec under its ID. Creating a record whose ID
	// already exists is not an error: the identical-content race between
	// two simultaneous uploads resolves to the already-stored record.
	Create(ctx context.Context, rec *asset.Record) (*asset.Record, error)

	// Delete removes the record stored under id. Deleting a missing
	// record returns common.ErrorNotFound.
	Delete(ctx context.Context, id string) error

	// ExistingFingerprints returns the subset of fingerprints that have
	// at least one persisted record, in a single query.
	ExistingFingerprints(ctx context.Context, fingerprints []string) (map[string]bool, error)
}
