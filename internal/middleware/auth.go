// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, request IDs, and metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	RequestID → Security → Metrics → RateLimit → Auth → Handler
//
// Security headers run early so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attempts before any DB
// work. Auth populates the caller identity that handlers read from the gin
// context.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gem-registry/gem-registry/internal/auth"
	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/db/repositories"
)

// APIKeyAuth validates the push credential carried in the Authorization
// header. Gem clients send the raw key either bare or behind a "Bearer "
// prefix; both forms are accepted. On success the authenticated user id is
// stored in the gin context under "user_id".
func APIKeyAuth(userRepo *repositories.UserRepository, apiKeyRepo *repositories.APIKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := auth.ExtractAPIKey(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access Denied. Please sign up for an account.",
			})
			return
		}

		apiKey, err := authenticateAPIKey(c.Request.Context(), key, apiKeyRepo)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}
		if apiKey == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access Denied. Please sign up for an account.",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), apiKey.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access Denied. Please sign up for an account.",
			})
			return
		}

		// Last-used tracking is best-effort; a failed update is not a
		// correctness problem, so it happens off the request path with
		// a bounded timeout.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiKeyRepo.TouchLastUsed(ctx, apiKey.ID)
		}()

		c.Set("api_key_id", apiKey.ID)
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("auth_method", "api_key")

		c.Next()
	}
}

// SessionAuth validates a browser session token and aborts with 401 when the
// request carries no usable identity.
func SessionAuth(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := sessionUser(c, userRepo)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Please sign in to continue.",
			})
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("auth_method", "session")

		c.Next()
	}
}

// OptionalSessionAuth is SessionAuth that never aborts. Handlers that render
// viewer-dependent fields (ownership, subscription state) check for "user_id"
// themselves.
func OptionalSessionAuth(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := sessionUser(c, userRepo); user != nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("auth_method", "session")
		}

		c.Next()
	}
}

func sessionUser(c *gin.Context, userRepo *repositories.UserRepository) *models.User {
	token, err := auth.ExtractAPIKey(c.GetHeader("Authorization"))
	if err != nil {
		return nil
	}

	claims, err := auth.ValidateSessionToken(token)
	if err != nil {
		return nil
	}

	user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil || user == nil {
		return nil
	}
	return user
}

// authenticateAPIKey narrows candidates by the stored display prefix, then
// runs the bcrypt comparison only on those rows. The raw key is never stored,
// only its hash, so the indexed prefix lookup is what keeps this from being an
// O(n) bcrypt scan of the whole table.
func authenticateAPIKey(ctx context.Context, providedKey string, apiKeyRepo *repositories.APIKeyRepository) (*models.APIKey, error) {
	keys, err := apiKeyRepo.GetByPrefix(ctx, auth.DisplayPrefix(providedKey))
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if auth.VerifyAPIKey(providedKey, key.KeyHash) {
			return key, nil
		}
	}

	return nil, nil
}
