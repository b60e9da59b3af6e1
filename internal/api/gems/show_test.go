package gems

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newShowRouter(t *testing.T, viewerID string) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)
	sqlxDB := sqlx.NewDb(db, "postgres")
	r := gin.New()
	r.GET("/gems/:id", sessionAs(viewerID), ShowHandler(db, sqlxDB, nil, "https://gems.example.com"))
	return mock, r
}

func expectHostedDetail(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT.*FROM rubygems.*WHERE name").
		WithArgs("rack").
		WillReturnRows(sampleGemRow())
	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WithArgs("gem-1").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("ver-1", "gem-1", "1.0.0", nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT.*FROM dependencies.*WHERE version_id").
		WithArgs("ver-1", "runtime").
		WillReturnRows(sqlmock.NewRows(dependencyCols).
			AddRow("dep-1", "ver-1", "rack-protection", ">= 2.0", "runtime"))
	mock.ExpectQuery("SELECT g.name, v.number").
		WithArgs(pq.Array([]string{"rack-protection"})).
		WillReturnRows(sqlmock.NewRows([]string{"name", "number"}))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WithArgs("gem-1").
		WillReturnRows(sqlmock.NewRows(linksetCols))
}

func TestShowHandler_Document(t *testing.T) {
	mock, r := newShowRouter(t, "")
	expectHostedDetail(mock)

	w := doGET(r, "/gems/rack")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "rack\n1.0.0\n") {
		t.Errorf("document does not open with name and version: %q", body)
	}
	if !strings.Contains(body, "rack-protection >= 2.0") {
		t.Errorf("document missing runtime dependency: %q", body)
	}
}

func TestShowHandler_JSON(t *testing.T) {
	mock, r := newShowRouter(t, "")
	expectHostedDetail(mock)

	w := doGET(r, "/gems/rack?format=json")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var detail struct {
		Name           string `json:"name"`
		Hosted         bool   `json:"hosted"`
		CurrentVersion *struct {
			Number string `json:"number"`
		} `json:"current_version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if detail.Name != "rack" || !detail.Hosted {
		t.Errorf("detail = %+v, want hosted rack", detail)
	}
	if detail.CurrentVersion == nil || detail.CurrentVersion.Number != "1.0.0" {
		t.Errorf("current_version = %+v, want 1.0.0", detail.CurrentVersion)
	}
}

func TestShowHandler_NotFound(t *testing.T) {
	mock, r := newShowRouter(t, "")
	expectGemMiss(mock)

	w := doGET(r, "/gems/missing")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if w.Body.String() != NotFoundMessage {
		t.Errorf("body = %q, want %q", w.Body.String(), NotFoundMessage)
	}
}

// A gem row without versions exists as a document but reads as 404 on the
// JSON surface.
func TestShowHandler_UnhostedJSON(t *testing.T) {
	mock, r := newShowRouter(t, "")

	mock.ExpectQuery("SELECT.*FROM rubygems.*WHERE name").
		WithArgs("rack").
		WillReturnRows(sampleGemRow())
	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))

	w := doGET(r, "/gems/rack?format=json")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), NotFoundMessage) {
		t.Errorf("body = %q, want the not-found message", w.Body.String())
	}
}

func TestShowHandler_UnhostedDocument(t *testing.T) {
	mock, r := newShowRouter(t, "")

	mock.ExpectQuery("SELECT.*FROM rubygems.*WHERE name").
		WithArgs("rack").
		WillReturnRows(sampleGemRow())
	mock.ExpectQuery("SELECT.*FROM versions.*WHERE rubygem_id").
		WillReturnRows(sqlmock.NewRows(versionCols))
	mock.ExpectQuery("SELECT.*FROM linksets").
		WillReturnRows(sqlmock.NewRows(linksetCols))

	w := doGET(r, "/gems/rack")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not currently hosted") {
		t.Errorf("body = %q, want the not-hosted notice", w.Body.String())
	}
}

func TestShowHandler_ViewerFlags(t *testing.T) {
	mock, r := newShowRouter(t, "user-1")
	expectHostedDetail(mock)
	mock.ExpectQuery("SELECT EXISTS.*FROM subscriptions").
		WithArgs("gem-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS.*FROM ownerships").
		WithArgs("gem-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := doGET(r, "/gems/rack?format=json")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var detail struct {
		Subscribed bool `json:"subscribed"`
		Owner      bool `json:"owner"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !detail.Subscribed || !detail.Owner {
		t.Errorf("flags = %+v, want both true", detail)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestShowHandler_DBError(t *testing.T) {
	mock, r := newShowRouter(t, "")
	mock.ExpectQuery("SELECT.*FROM rubygems.*WHERE name").WillReturnError(errDB)

	w := doGET(r, "/gems/rack")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
