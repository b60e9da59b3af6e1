package gems

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/db/repositories"
	"github.com/gem-registry/gem-registry/internal/registry"
)

// EditDeniedMessage is returned when a non-owner tries to read or change a
// gem's links
const EditDeniedMessage = "You do not have permission to edit this gem."

// linksetPayload is the accepted update body. Absent fields clear their slot;
// a linkset update always replaces the whole row.
type linksetPayload struct {
	Code string `json:"code"`
	Docs string `json:"docs"`
	Wiki string `json:"wiki"`
	Mail string `json:"mail"`
	Bugs string `json:"bugs"`
}

// EditHandler returns the current linkset of a gem the session user owns, as
// the edit form's starting state.
// Implements: GET /gems/:id/edit
func EditHandler(db *sql.DB, sqlxDB *sqlx.DB) gin.HandlerFunc {
	gemRepo := repositories.NewRubygemRepository(db)
	ownershipRepo := repositories.NewOwnershipRepository(db)
	linksetRepo := repositories.NewLinksetRepository(sqlxDB)

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

		owner, err := ownershipRepo.IsApprovedOwner(c.Request.Context(), gem.ID, c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check ownership"})
			return
		}
		if !owner {
			c.String(http.StatusForbidden, EditDeniedMessage)
			return
		}

		linkset, err := linksetRepo.Get(c.Request.Context(), gem.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load links"})
			return
		}
		if linkset == nil {
			linkset = &models.Linkset{RubygemID: gem.ID}
		}

		c.JSON(http.StatusOK, gin.H{"name": gem.Name, "linkset": linkset})
	}
}

// UpdateHandler replaces a gem's linkset. Validation runs in full before any
// write, so a rejected payload leaves the stored links as they were.
// Implements: PUT /gems/:id
func UpdateHandler(db *sql.DB, sqlxDB *sqlx.DB) gin.HandlerFunc {
	gemRepo := repositories.NewRubygemRepository(db)

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

		var payload linksetPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		candidate := &models.Linkset{
			RubygemID: gem.ID,
			Code:      payload.Code,
			Docs:      payload.Docs,
			Wiki:      payload.Wiki,
			Mail:      payload.Mail,
			Bugs:      payload.Bugs,
		}

		err = registry.UpdateLinkset(c.Request.Context(), sqlxDB, c.GetString("user_id"), candidate)
		if err != nil {
			var ve *registry.ValidationError
			switch {
			case errors.As(err, &ve):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": ve.Fields})
			case errors.Is(err, registry.ErrNotOwner):
				c.String(http.StatusForbidden, EditDeniedMessage)
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update links"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"name": gem.Name, "linkset": candidate})
	}
}
