package gems

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errDB = errors.New("db error")

// ---------------------------------------------------------------------------
// Column definitions (positional order must match Scan calls)
// ---------------------------------------------------------------------------

var gemCols = []string{"id", "name", "slug", "created_at", "updated_at"}

var versionCols = []string{"id", "rubygem_id", "number", "description", "created_at", "updated_at"}

var dependencyCols = []string{"id", "version_id", "gem_name", "requirements", "kind"}

var linksetCols = []string{"rubygem_id", "code", "docs", "wiki", "mail", "bugs"}

// ---------------------------------------------------------------------------
// Row builders
// ---------------------------------------------------------------------------

func sampleGemRow() *sqlmock.Rows {
	return sqlmock.NewRows(gemCols).
		AddRow("gem-1", "rack", "rack", time.Now(), time.Now())
}

func emptyGemRows() *sqlmock.Rows {
	return sqlmock.NewRows(gemCols)
}

// expectGemMiss covers both lookup queries of FindByNameOrSlug coming up dry.
func expectGemMiss(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT.*FROM rubygems.*WHERE name").WillReturnRows(emptyGemRows())
	mock.ExpectQuery(`SELECT.*FROM rubygems.*WHERE LOWER\(slug\)`).WillReturnRows(emptyGemRows())
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// sessionAs stands in for the session middleware in tests
func sessionAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}
