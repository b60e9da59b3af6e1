// linksets.go implements the linkset update operation. Validation is a pure
// function over the candidate payload, run in full before any persistence
// attempt, so a rejected update leaves the stored row untouched.
package registry

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/db/repositories"
)

const linksetURLMessage = "is not a valid URL"

// ValidateLinkset checks every non-empty field of a candidate linkset for
// being a well-formed absolute http(s) URL. It returns nil or a
// ValidationError naming each offending field.
func ValidateLinkset(ls *models.Linkset) error {
	fields := map[string]string{
		"code": ls.Code,
		"docs": ls.Docs,
		"wiki": ls.Wiki,
		"mail": ls.Mail,
		"bugs": ls.Bugs,
	}

	errs := make(map[string]string)
	for field, value := range fields {
		if value == "" {
			continue
		}
		if !validAbsoluteURL(value) {
			errs[field] = linksetURLMessage
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// UpdateLinkset validates and persists a candidate linkset for a gem the
// actor owns. The ownership check mirrors the push path: the gem must exist
// and the actor must hold an approved ownership, otherwise ErrNotOwner.
func UpdateLinkset(ctx context.Context, db *sqlx.DB, actorID string, candidate *models.Linkset) error {
	if err := ValidateLinkset(candidate); err != nil {
		return err
	}

	ownerships := repositories.NewOwnershipRepository(db.DB)
	owner, err := ownerships.IsApprovedOwner(ctx, candidate.RubygemID, actorID)
	if err != nil {
		return err
	}
	if !owner {
		return ErrNotOwner
	}

	linksets := repositories.NewLinksetRepository(db)
	if err := linksets.Update(ctx, candidate); err != nil {
		return fmt.Errorf("failed to persist linkset: %w", err)
	}

	return nil
}
