// slug.go derives the lookup slug for a gem name. Slugs are lowercase with
// runs of non-alphanumeric characters collapsed to a dash. When two names
// normalize to the same slug, the later gem gets a deterministic suffix
// derived from its own name, assigned once at creation and never changed.
package registry

import (
	"regexp"
	"strings"

	"github.com/gem-registry/gem-registry/pkg/checksum"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveSlug normalizes a gem name into its lookup slug
func DeriveSlug(name string) string {
	slug := strings.ToLower(name)
	slug = slugStrip.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "gem"
	}
	return slug
}

// DisambiguateSlug appends a deterministic suffix for slug collisions between
// distinct names. The suffix depends only on the colliding name, so retries of
// the same creation always produce the same slug.
func DisambiguateSlug(slug, name string) string {
	digest, err := checksum.CalculateSHA256(strings.NewReader(name))
	if err != nil || len(digest) < 8 {
		return slug
	}
	return slug + "-" + digest[:8]
}
