// Package checksum provides SHA-256 checksum utilities for gem integrity
// verification. It is used when gems are pushed to compute the digest of the
// stored archive and to verify entries against the checksums document shipped
// inside the gem itself. Keeping this logic in a dedicated package makes it
// easy to apply consistent hashing behaviour across the parse, push, and
// storage layers without duplicating crypto/sha256 wiring throughout the
// codebase.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// CalculateSHA256 calculates the SHA256 checksum of data from a reader
func CalculateSHA256(reader io.Reader) (string, error) {
	hasher := sha256.New()

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 verifies that the checksum of data matches the expected checksum
func VerifySHA256(reader io.Reader, expectedChecksum string) (bool, error) {
	actualChecksum, err := CalculateSHA256(reader)
	if err != nil {
		return false, err
	}

	return actualChecksum == expectedChecksum, nil
}

// CopyAndSum copies src into dst while computing the SHA256 checksum of the
// bytes written, so callers can persist a blob and record its digest in a
// single pass.
func CopyAndSum(dst io.Writer, src io.Reader) (string, int64, error) {
	hasher := sha256.New()

	written, err := io.Copy(io.MultiWriter(dst, hasher), src)
	if err != nil {
		return "", written, fmt.Errorf("failed to copy while hashing: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}
