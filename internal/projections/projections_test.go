package projections

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/registry"
)

var (
	versionCols    = []string{"id", "rubygem_id", "number", "description", "created_at", "updated_at"}
	dependencyCols = []string{"id", "version_id", "gem_name", "requirements", "kind"}
	linksetCols    = []string{"rubygem_id", "code", "docs", "wiki", "mail", "bugs"}
	summaryCols    = []string{
		"id", "name", "slug", "created_at", "updated_at",
		"numbers", "version_count",
	}
	hostedNumberCols = []string{"name", "number"}
)

func newProjector(t *testing.T, cache *registry.DependencyCache) (*Projector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProjector(db, sqlx.NewDb(db, "postgres"), cache, "https://gems.example.com"), mock
}

func testGem() *models.Rubygem {
	return &models.Rubygem{ID: "gem-1", Name: "rack", Slug: "rack"}
}

// ---------------------------------------------------------------------------
// Detail
// ---------------------------------------------------------------------------

func TestDetail_Hosted(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WithArgs("gem-1").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("ver-old", "gem-1", "0.9.0", nil, time.Now(), time.Now()).
			AddRow("ver-new", "gem-1", "1.0.0", nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT.*FROM dependencies.*WHERE version_id").
		WithArgs("ver-new", models.DependencyRuntime).
		WillReturnRows(sqlmock.NewRows(dependencyCols).
			AddRow("dep-1", "ver-new", "rack-protection", ">= 2.0", "runtime"))
	mock.ExpectQuery("SELECT g.name, v.number").
		WithArgs(pq.Array([]string{"rack-protection"})).
		WillReturnRows(sqlmock.NewRows(hostedNumberCols).
			AddRow("rack-protection", "2.1.0"))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WithArgs("gem-1").
		WillReturnRows(sqlmock.NewRows(linksetCols).
			AddRow("gem-1", "https://github.com/rack/rack", "", "", "", ""))

	detail, err := p.Detail(context.Background(), testGem(), "")
	require.NoError(t, err)

	assert.True(t, detail.Hosted)
	assert.True(t, detail.ShowHistory)
	require.NotNil(t, detail.CurrentVersion)
	assert.Equal(t, "1.0.0", detail.CurrentVersion.Number)
	require.Len(t, detail.RuntimeDependencies, 1)
	assert.Equal(t, "rack-protection", detail.RuntimeDependencies[0].Name)
	assert.True(t, detail.RuntimeDependencies[0].Resolvable)
	require.NotNil(t, detail.Linkset)
	assert.Equal(t, "https://github.com/rack/rack", detail.Linkset.Code)
	assert.False(t, detail.Subscribed)
	assert.False(t, detail.Owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetail_NotHosted(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))

	detail, err := p.Detail(context.Background(), testGem(), "")
	require.NoError(t, err)

	assert.False(t, detail.Hosted)
	assert.False(t, detail.ShowHistory)
	assert.Nil(t, detail.CurrentVersion)
	assert.Empty(t, detail.RuntimeDependencies)
	assert.Nil(t, detail.Linkset)
}

func TestDetail_SingleVersionNoHistory(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("ver-1", "gem-1", "1.0.0", nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT.*FROM dependencies.*WHERE version_id").
		WillReturnRows(sqlmock.NewRows(dependencyCols))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))

	detail, err := p.Detail(context.Background(), testGem(), "")
	require.NoError(t, err)

	assert.True(t, detail.Hosted)
	assert.False(t, detail.ShowHistory)
}

func TestDetail_ViewerFlags(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("ver-1", "gem-1", "1.0.0", nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT.*FROM dependencies.*WHERE version_id").
		WillReturnRows(sqlmock.NewRows(dependencyCols))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))
	mock.ExpectQuery("SELECT EXISTS.*FROM subscriptions").
		WithArgs("gem-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS.*FROM ownerships").
		WithArgs("gem-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	detail, err := p.Detail(context.Background(), testGem(), "user-1")
	require.NoError(t, err)

	assert.True(t, detail.Subscribed)
	assert.False(t, detail.Owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetail_DependencyCacheHit(t *testing.T) {
	cache := registry.NewDependencyCache(time.Minute)
	cache.Set("ver-1", []*models.Dependency{
		{ID: "dep-1", VersionID: "ver-1", GemName: "rake", Requirements: ">= 0", Kind: "runtime"},
	})
	p, mock := newProjector(t, cache)

	// No dependencies query expected when the cache holds the list. The
	// resolvability check still consults hosted numbers.
	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("ver-1", "gem-1", "1.0.0", nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT g.name, v.number").
		WithArgs(pq.Array([]string{"rake"})).
		WillReturnRows(sqlmock.NewRows(hostedNumberCols))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))

	detail, err := p.Detail(context.Background(), testGem(), "")
	require.NoError(t, err)

	require.Len(t, detail.RuntimeDependencies, 1)
	assert.Equal(t, "rake", detail.RuntimeDependencies[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Requirements are checked against hosted versions under the constraint
// grammar; hosting some version of the gem is not enough.
func TestDetail_DependencyResolution(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("ver-1", "gem-1", "1.0.0", nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT.*FROM dependencies.*WHERE version_id").
		WillReturnRows(sqlmock.NewRows(dependencyCols).
			AddRow("dep-1", "ver-1", "puma", "~> 6.0", "runtime").
			AddRow("dep-2", "ver-1", "rack-protection", ">= 2.0", "runtime").
			AddRow("dep-3", "ver-1", "thin", ">= 0", "runtime"))
	mock.ExpectQuery("SELECT g.name, v.number").
		WithArgs(pq.Array([]string{"puma", "rack-protection", "thin"})).
		WillReturnRows(sqlmock.NewRows(hostedNumberCols).
			AddRow("puma", "5.6.2").
			AddRow("rack-protection", "2.1.0"))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))

	detail, err := p.Detail(context.Background(), testGem(), "")
	require.NoError(t, err)

	require.Len(t, detail.RuntimeDependencies, 3)
	assert.False(t, detail.RuntimeDependencies[0].Resolvable, "puma 5.6.2 does not satisfy ~> 6.0")
	assert.True(t, detail.RuntimeDependencies[1].Resolvable)
	assert.False(t, detail.RuntimeDependencies[2].Resolvable, "thin is not hosted at all")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestListing_LetterFilter(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM rubygems g.*ILIKE").
		WithArgs("z%").
		WillReturnRows(sqlmock.NewRows(summaryCols).
			AddRow("gem-4", "zeta", "zeta", time.Now(), time.Now(), "{0.3.0,0.3.1}", 2))

	entries, err := p.Listing(context.Background(), "z")
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "zeta", entries[0].Name)
	assert.Equal(t, "0.3.1", entries[0].CurrentVersion)
	assert.Equal(t, 2, entries[0].VersionCount)
	assert.Equal(t, "https://gems.example.com/gems/zeta", entries[0].URL)
}

func TestListing_Empty(t *testing.T) {
	p, mock := newProjector(t, nil)

	mock.ExpectQuery("SELECT.*FROM rubygems g").
		WillReturnRows(sqlmock.NewRows(summaryCols))

	entries, err := p.Listing(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}
