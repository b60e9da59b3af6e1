package gems

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/db/repositories"
)

// SubscribeHandler records the session user's interest in a gem's new
// versions. Subscribing twice is a no-op.
// Implements: POST /gems/:id/subscription
func SubscribeHandler(db *sql.DB, sqlxDB *sqlx.DB) gin.HandlerFunc {
	gemRepo := repositories.NewRubygemRepository(db)
	subRepo := repositories.NewSubscriptionRepository(sqlxDB)

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

		if err := subRepo.Subscribe(c.Request.Context(), gem.ID, c.GetString("user_id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"name": gem.Name, "subscribed": true})
	}
}

// UnsubscribeHandler removes the session user's subscription. Removing a
// subscription that does not exist is a no-op.
// Implements: DELETE /gems/:id/subscription
func UnsubscribeHandler(db *sql.DB, sqlxDB *sqlx.DB) gin.HandlerFunc {
	gemRepo := repositories.NewRubygemRepository(db)
	subRepo := repositories.NewSubscriptionRepository(sqlxDB)

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

		if err := subRepo.Unsubscribe(c.Request.Context(), gem.ID, c.GetString("user_id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"name": gem.Name, "subscribed": false})
	}
}
