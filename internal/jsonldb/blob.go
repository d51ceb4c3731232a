// Defines the content-addressed blob reference format.

package jsonldb

import (
	"errors"
	"strconv"
)

// BlobRef is a content-addressed blob reference in format "sha256:<BASE32>-<size>".
type BlobRef string

const blobRefPrefix = "sha256:"

var errInvalidBlobRef = errors.New("invalid blob ref")

// Validate checks if the blob reference is valid.
// Format: "sha256:<hash>-<size>" where hash is 52 uppercase base32 hex chars (0-9, A-V) and size is decimal digits.
func (r BlobRef) Validate() error {
	if r == "" {
		return nil // Empty ref is valid (unset).
	}
	// "sha256:" (7) + 52 base32 + "-" + at least 1 digit = 61 minimum
	if len(r) < 61 || r[:7] != blobRefPrefix || r[59] != '-' {
		return errInvalidBlobRef
	}
	for i := 7; i < 59; i++ {
		if !isBase32HexChar(r[i]) {
			return errInvalidBlobRef
		}
	}
	for i := 60; i < len(r); i++ {
		if r[i] < '0' || r[i] > '9' {
			return errInvalidBlobRef
		}
	}
	return nil
}

// IsZero returns true if the blob reference is unset.
func (r BlobRef) IsZero() bool {
	return r == ""
}

// Size returns the content length encoded in the ref.
func (r BlobRef) Size() int64 {
	if r.Validate() != nil || r.IsZero() {
		return 0
	}
	n, _ := strconv.ParseInt(string(r[60:]), 10, 64)
	return n
}

// isBase32HexChar checks if a byte is a valid base32 hex character (0-9, A-V uppercase only).
func isBase32HexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'V')
}
