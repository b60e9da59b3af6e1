// Package gems implements the HTTP handlers for the gem surface: push,
// detail, listing, feed, linkset editing, and subscriptions. Handlers are
// factories that close over their dependencies; the push endpoint answers in
// plain text because gem clients print the response body verbatim.
package gems

import (
	"database/sql"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gem-registry/gem-registry/internal/gemspec"
	"github.com/gem-registry/gem-registry/internal/registry"
	"github.com/gem-registry/gem-registry/internal/storage"
	"github.com/gem-registry/gem-registry/internal/telemetry"
)

// MalformedGemMessage is returned for uploads the parser rejects
const MalformedGemMessage = "Registry cannot process this gem. Please try rebuilding it and installing it locally to make sure it's valid."

// PushDeniedMessage is returned when the pusher holds no ownership on an
// existing gem
const PushDeniedMessage = "You do not have permission to push to this gem."

// PushHandler accepts a raw gem archive as the request body and registers it
// for the authenticated user.
// Implements: POST /api/v1/gems
func PushHandler(db *sql.DB, store storage.Storage, cache *registry.DependencyCache) gin.HandlerFunc {
	pusher := registry.NewPusher(db, store, cache)

	return func(c *gin.Context) {
		actorID := c.GetString("user_id")

		// Read one byte past the cap so oversized uploads are detected
		// instead of silently truncated.
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, gemspec.MaxGemSize+1))
		if err != nil {
			telemetry.GemPushesTotal.WithLabelValues(telemetry.PushOutcomeError).Inc()
			c.String(http.StatusInternalServerError, "Failed to read gem upload.")
			return
		}

		result, err := pusher.Push(c.Request.Context(), actorID, data)
		if err != nil {
			switch {
			case errors.Is(err, gemspec.ErrMalformed):
				telemetry.GemPushesTotal.WithLabelValues(telemetry.PushOutcomeMalformed).Inc()
				c.String(http.StatusUnprocessableEntity, MalformedGemMessage)
			case errors.Is(err, registry.ErrNotOwner):
				telemetry.GemPushesTotal.WithLabelValues(telemetry.PushOutcomeDenied).Inc()
				c.String(http.StatusForbidden, PushDeniedMessage)
			default:
				telemetry.GemPushesTotal.WithLabelValues(telemetry.PushOutcomeError).Inc()
				c.String(http.StatusInternalServerError, "Failed to register gem.")
			}
			return
		}

		outcome := telemetry.PushOutcomeUpdated
		if result.VersionCreated {
			outcome = telemetry.PushOutcomeCreated
		}
		telemetry.GemPushesTotal.WithLabelValues(outcome).Inc()

		c.String(http.StatusOK, "Successfully registered gem: %s (%s)",
			result.Rubygem.Name, result.Version.Number)
	}
}
