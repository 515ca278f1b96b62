// Package asset defines the persisted asset record model and the
// deterministic identifier scheme that makes stored content addressable
// by its fingerprint.
package asset

import (
	"fmt"
	"strings"
)

// Type discriminates the two kinds of stored assets.
type Type string

const (
	TypeFile  Type = "file"
	TypeImage Type = "image"
)

// Valid reports whether t is a supported asset type.
func (t Type) Valid() bool {
	return t == TypeFile || t == TypeImage
}

// Dimensions holds intrinsic pixel dimensions of an image asset.
type Dimensions struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspectRatio"`
}

// NewDimensions computes the aspect ratio from width and height.
func NewDimensions(width, height int) *Dimensions {
	d := &Dimensions{Width: width, Height: height}
	if height != 0 {
		d.AspectRatio = float64(width) / float64(height)
	}
	return d
}

// Record is the persisted entity representing one stored binary asset.
// It is created exactly once per distinct fingerprint+type+dimensions
// combination; the ID is deterministically derived from those, so dedup
// needs no separate lookup index.
type Record struct {
	ID               string      `json:"id"`
	Type             Type        `json:"assetType"`
	Fingerprint      string      `json:"fingerprint"`
	Extension        string      `json:"extension"`
	MimeType         string      `json:"mimeType"`
	Size             int64       `json:"size"`
	OriginalFilename string      `json:"originalFilename,omitempty"`
	Dimensions       *Dimensions `json:"dimensions,omitempty"`
}

// Extension returns the trailing dot-separated segment of filename.
// A name without a dot yields the name itself, matching the historical
// behavior the identifier scheme was built on.
func Extension(filename string) string {
	parts := strings.Split(filename, ".")
	return parts[len(parts)-1]
}

// DocumentID derives the deterministic record ID. Images with known
// dimensions get a dimensioned ID; everything else falls back to the
// file-style ID, including images whose dimension probe failed.
func DocumentID(t Type, fingerprint, extension string, dims *Dimensions) string {
	if t == TypeImage && dims != nil {
		return fmt.Sprintf("%s-%s-%dx%d-%s", TypeImage, fingerprint, dims.Width, dims.Height, extension)
	}
	return fmt.Sprintf("%s-%s-%s", TypeFile, fingerprint, extension)
}

// ObjectKey derives the object-store key for the uploaded bytes.
func ObjectKey(fingerprint, extension string, dims *Dimensions) string {
	if dims != nil {
		return fmt.Sprintf("%s-%dx%d.%s", fingerprint, dims.Width, dims.Height, extension)
	}
	return fmt.Sprintf("%s.%s", fingerprint, extension)
}
