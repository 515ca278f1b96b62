package asset

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMime sniffs the content type from raw bytes.
func DetectMime(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsImageMime reports whether the given content type denotes an image.
func IsImageMime(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

// TypeForMime picks the asset type implied by a content type.
func TypeForMime(mime string) Type {
	if IsImageMime(mime) {
		return TypeImage
	}
	return TypeFile
}
