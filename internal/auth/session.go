// session.go handles session token creation and verification for the link
// editing surface. Tokens are HMAC-signed JWTs; the secret comes from
// configuration or, in development, is generated per-process so restarting
// the server invalidates outstanding sessions.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long an issued session token stays valid
const SessionTTL = 24 * time.Hour

var (
	sessionSecret   []byte
	sessionSecretMu sync.Mutex
)

// SessionClaims is the claim set carried by a session token
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SetSessionSecret installs the signing secret from configuration. An empty
// secret keeps the generated per-process one.
func SetSessionSecret(secret string) {
	if secret == "" {
		return
	}
	sessionSecretMu.Lock()
	defer sessionSecretMu.Unlock()
	sessionSecret = []byte(secret)
}

func signingSecret() []byte {
	sessionSecretMu.Lock()
	defer sessionSecretMu.Unlock()
	if len(sessionSecret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			sessionSecret = []byte(fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano()))
		} else {
			sessionSecret = []byte(hex.EncodeToString(buf))
		}
	}
	return sessionSecret
}

// CreateSessionToken issues a signed session token for a user
func CreateSessionToken(userID, email string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			Issuer:    "gem-registry",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ValidateSessionToken verifies a session token and returns its claims
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("session token has no user")
	}

	return claims, nil
}
