// Package checksum hashes note content for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// String hashes a text body the same way Sum hashes its bytes.
func String(s string) string {
	return Sum([]byte(s))
}
