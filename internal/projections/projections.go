// Package projections renders registry state into its read representations:
// the gem detail view, the alphabetical listing, and the Atom feed of recent
// versions. Everything here is a read-side transform — no method mutates
// registry state, and each projection is assembled from one repository
// snapshot so a version is never shown with half-written dependencies.
package projections

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/db/repositories"
	"github.com/gem-registry/gem-registry/internal/gemspec"
	"github.com/gem-registry/gem-registry/internal/registry"
)

// Projector builds read projections over the registry's read surface
type Projector struct {
	versions      *repositories.VersionRepository
	gems          *repositories.RubygemRepository
	linksets      *repositories.LinksetRepository
	subscriptions *repositories.SubscriptionRepository
	ownerships    *repositories.OwnershipRepository
	cache         *registry.DependencyCache
	baseURL       string
}

// NewProjector creates a projector. baseURL is the public URL gem links in
// the feed are rooted at.
func NewProjector(db *sql.DB, sqlxDB *sqlx.DB, cache *registry.DependencyCache, baseURL string) *Projector {
	return &Projector{
		versions:      repositories.NewVersionRepository(db),
		gems:          repositories.NewRubygemRepository(db),
		linksets:      repositories.NewLinksetRepository(sqlxDB),
		subscriptions: repositories.NewSubscriptionRepository(sqlxDB),
		ownerships:    repositories.NewOwnershipRepository(db),
		cache:         cache,
		baseURL:       baseURL,
	}
}

// VersionInfo is one version entry in a detail projection
type VersionInfo struct {
	Number    string    `json:"number"`
	BuiltAt   time.Time `json:"built_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DependencyInfo is one runtime dependency entry in a detail projection.
// Resolvable reports whether some hosted version of the named gem satisfies
// the requirement, so clients can tell which dependencies this registry can
// serve itself.
type DependencyInfo struct {
	Name         string `json:"name"`
	Requirements string `json:"requirements"`
	Resolvable   bool   `json:"resolvable"`
}

// Detail is the full read model of one gem
type Detail struct {
	Name                string           `json:"name"`
	Slug                string           `json:"slug"`
	Hosted              bool             `json:"hosted"`
	CurrentVersion      *VersionInfo     `json:"current_version,omitempty"`
	Versions            []VersionInfo    `json:"versions,omitempty"`
	ShowHistory         bool             `json:"show_history"`
	RuntimeDependencies []DependencyInfo `json:"runtime_dependencies"`
	Linkset             *models.Linkset  `json:"linkset,omitempty"`
	Subscribed          bool             `json:"subscribed"`
	Owner               bool             `json:"owner"`
}

// Detail assembles the detail projection of a gem for an optional viewer.
// viewerID drives the subscribed and owner flags; pass "" for anonymous.
func (p *Projector) Detail(ctx context.Context, gem *models.Rubygem, viewerID string) (*Detail, error) {
	versions, err := p.versions.ListByRubygem(ctx, gem.ID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{
		Name:                gem.Name,
		Slug:                gem.Slug,
		Hosted:              len(versions) > 0,
		ShowHistory:         len(versions) > 1,
		RuntimeDependencies: []DependencyInfo{},
	}

	for _, v := range versions {
		detail.Versions = append(detail.Versions, VersionInfo{
			Number:    v.Number,
			BuiltAt:   v.UpdatedAt,
			CreatedAt: v.CreatedAt,
		})
	}

	if len(versions) > 0 {
		current := versions[0] // ListByRubygem sorts by version ordering, not creation order
		detail.CurrentVersion = &detail.Versions[0]

		deps, err := p.runtimeDependencies(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		detail.RuntimeDependencies, err = p.resolveDependencies(ctx, deps)
		if err != nil {
			return nil, err
		}
	}

	linkset, err := p.linksets.Get(ctx, gem.ID)
	if err != nil {
		return nil, err
	}
	detail.Linkset = linkset

	if viewerID != "" {
		subscribed, err := p.subscriptions.IsSubscribed(ctx, gem.ID, viewerID)
		if err != nil {
			return nil, err
		}
		detail.Subscribed = subscribed

		owner, err := p.ownerships.IsApprovedOwner(ctx, gem.ID, viewerID)
		if err != nil {
			return nil, err
		}
		detail.Owner = owner
	}

	return detail, nil
}

// resolveDependencies converts dependency edges into projection entries,
// checking each requirement against the versions this registry hosts for the
// named gem. One query covers all names.
func (p *Projector) resolveDependencies(ctx context.Context, deps []*models.Dependency) ([]DependencyInfo, error) {
	if len(deps) == 0 {
		return []DependencyInfo{}, nil
	}

	names := make([]string, 0, len(deps))
	for _, d := range deps {
		names = append(names, d.GemName)
	}
	hosted, err := p.versions.HostedNumbers(ctx, names)
	if err != nil {
		return nil, err
	}

	infos := make([]DependencyInfo, 0, len(deps))
	for _, d := range deps {
		info := DependencyInfo{
			Name:         d.GemName,
			Requirements: d.Requirements,
		}
		for _, number := range hosted[d.GemName] {
			if gemspec.Satisfies(number, d.Requirements) {
				info.Resolvable = true
				break
			}
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// runtimeDependencies reads a version's runtime dependency list through the
// cache. Development dependencies never reach this projection.
func (p *Projector) runtimeDependencies(ctx context.Context, versionID string) ([]*models.Dependency, error) {
	if p.cache != nil {
		if deps, ok := p.cache.Get(versionID); ok {
			return deps, nil
		}
	}

	deps, err := p.versions.Dependencies(ctx, versionID, models.DependencyRuntime)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Set(versionID, deps)
	}
	return deps, nil
}

// ListingEntry is one row of the listing projection
type ListingEntry struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	CurrentVersion string `json:"current_version,omitempty"`
	VersionCount   int    `json:"version_count"`
	URL            string `json:"url"`
}

// Listing returns gems ordered by name, optionally filtered by starting letter
func (p *Projector) Listing(ctx context.Context, letter string) ([]ListingEntry, error) {
	gems, err := p.gems.List(ctx, letter)
	if err != nil {
		return nil, err
	}

	entries := make([]ListingEntry, 0, len(gems))
	for _, g := range gems {
		entry := ListingEntry{
			Name:         g.Name,
			Slug:         g.Slug,
			VersionCount: g.VersionCount,
			URL:          fmt.Sprintf("%s/gems/%s", p.baseURL, g.Slug),
		}
		if g.CurrentVersion != nil {
			entry.CurrentVersion = *g.CurrentVersion
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
