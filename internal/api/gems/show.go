package gems

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/db/repositories"
	"github.com/gem-registry/gem-registry/internal/projections"
	"github.com/gem-registry/gem-registry/internal/registry"
)

// NotFoundMessage is the body of every 404 on the gem surface
const NotFoundMessage = "This gem could not be found."

// ShowHandler renders the detail projection of one gem. The :id segment is
// resolved as an exact name first, then a case-insensitive slug. The default
// representation is the plain-text document; ?format=json selects JSON, where
// a gem with no hosted versions reads as 404.
// Implements: GET /gems/:id
func ShowHandler(db *sql.DB, sqlxDB *sqlx.DB, cache *registry.DependencyCache, baseURL string) gin.HandlerFunc {
	gemRepo := repositories.NewRubygemRepository(db)
	projector := projections.NewProjector(db, sqlxDB, cache, baseURL)

	return func(c *gin.Context) {
		gem, err := gemRepo.FindByNameOrSlug(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up gem"})
			return
		}
		if gem == nil {
			c.String(http.StatusNotFound, NotFoundMessage)
			return
		}

		detail, err := projector.Detail(c.Request.Context(), gem, c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build gem detail"})
			return
		}

		switch c.Query("format") {
		case "json":
			// The JSON surface only reports hosted gems; a row without
			// versions is indistinguishable from absence.
			if !detail.Hosted {
				c.JSON(http.StatusNotFound, gin.H{"error": NotFoundMessage})
				return
			}
			c.JSON(http.StatusOK, detail)
		default:
			c.String(http.StatusOK, projections.RenderDocument(detail))
		}
	}
}
