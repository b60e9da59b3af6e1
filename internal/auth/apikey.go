// Package auth provides the two identity-proof mechanisms the registry
// accepts: API keys presented with gem pushes (bcrypt-hashed, long-lived) and
// session tokens used for link editing (JWT, short-lived). The two are
// independent credentials feeding the same ownership checks — a push never
// authenticates with a session and the edit pages never accept an API key.
// See internal/middleware/auth.go for the request-time logic.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyPrefix namespaces registry keys so they are recognizable in
	// config files and secret scanners
	APIKeyPrefix = "gemreg"

	// apiKeyRandomBytes is the entropy of the random part of a key
	apiKeyRandomBytes = 32

	// DisplayPrefixLength is how many characters of a key are stored in
	// clear for candidate lookup and display
	DisplayPrefixLength = 12

	// bcryptCost is the cost factor for key hashing
	bcryptCost = 12
)

// GenerateAPIKey creates a new push credential.
// Returns: full key (shown once), bcrypt hash (stored), display prefix (stored).
func GenerateAPIKey() (key string, hash string, displayPrefix string, err error) {
	randomBytes := make([]byte, apiKeyRandomBytes)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	key = fmt.Sprintf("%s_%s", APIKeyPrefix, base64.RawURLEncoding.EncodeToString(randomBytes))

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash API key: %w", err)
	}

	displayPrefix = key
	if len(key) > DisplayPrefixLength {
		displayPrefix = key[:DisplayPrefixLength]
	}

	return key, string(hashBytes), displayPrefix, nil
}

// VerifyAPIKey checks a presented key against a stored bcrypt hash
func VerifyAPIKey(providedKey, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedKey)) == nil
}

// DisplayPrefix returns the candidate-lookup prefix of a presented key
func DisplayPrefix(key string) string {
	if len(key) > DisplayPrefixLength {
		return key[:DisplayPrefixLength]
	}
	return key
}

// ExtractAPIKey pulls the API key out of an Authorization header. Both the
// bare form (the original push protocol sent the key as the whole header) and
// the "Bearer <key>" form are accepted.
func ExtractAPIKey(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if key == "" {
		return "", errors.New("API key is empty")
	}

	return key, nil
}
