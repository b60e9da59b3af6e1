package gems

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/projections"
	"github.com/gem-registry/gem-registry/internal/registry"
)

// IndexHandler renders the alphabetical gem listing, optionally filtered by a
// starting letter, or the Atom feed of recently pushed versions when
// ?format=atom is requested.
// Implements: GET /gems
func IndexHandler(db *sql.DB, sqlxDB *sqlx.DB, cache *registry.DependencyCache, baseURL string) gin.HandlerFunc {
	projector := projections.NewProjector(db, sqlxDB, cache, baseURL)

	return func(c *gin.Context) {
		if c.Query("format") == "atom" {
			feed, err := projector.Feed(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build feed"})
				return
			}

			body, err := feed.Render()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render feed"})
				return
			}

			c.Data(http.StatusOK, "application/atom+xml; charset=utf-8", body)
			return
		}

		entries, err := projector.Listing(c.Request.Context(), c.Query("letter"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list gems"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"gems": entries})
	}
}
