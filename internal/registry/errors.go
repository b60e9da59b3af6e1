// Package registry implements the transactional core of gem publication:
// parsing an upload, enforcing ownership, and committing the gem, version,
// dependency, ownership, and linkset rows as one atomic unit. It also owns
// the linkset update operation and the read-through dependency cache.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotOwner is returned when a push or linkset edit targets an existing gem
// the actor holds no approved ownership on. It is distinct from not-found: the
// gem exists, access is refused.
var ErrNotOwner = errors.New("actor is not an approved owner of this gem")

// ValidationError carries field-level messages for a rejected linkset update.
// The previously persisted state is untouched when one is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is a field-level validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
