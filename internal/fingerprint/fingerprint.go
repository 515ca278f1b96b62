// Package fingerprint computes stable content digests for local files.
// The digest is the dedup and identity key for stored assets: identical
// bytes always produce the identical fingerprint.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mediavault/internal/common"
)

// SumBytes returns the lowercase hex SHA-1 digest of data.
func SumBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SumFile reads the complete file at path into memory and returns its
// fingerprint. Asset sizes are bounded in practice, so no streaming hash
// is needed. A read failure wraps common.ErrUnreadableFile and is
// terminal for the upload attempt.
func SumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrUnreadableFile, path, err)
	}
	return SumBytes(data), nil
}
