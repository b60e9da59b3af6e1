package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var ownershipCols = []string{
	"id", "rubygem_id", "user_id", "approved", "created_at", "user_email",
}

func newOwnershipRepo(t *testing.T) (*OwnershipRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOwnershipRepository(db), mock
}

func TestIsApprovedOwner_True(t *testing.T) {
	repo, mock := newOwnershipRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("gem-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	owner, err := repo.IsApprovedOwner(context.Background(), "gem-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !owner {
		t.Error("expected owner = true")
	}
}

func TestIsApprovedOwner_False(t *testing.T) {
	repo, mock := newOwnershipRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("gem-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	owner, err := repo.IsApprovedOwner(context.Background(), "gem-1", "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner {
		t.Error("expected owner = false")
	}
}

func TestIsApprovedOwner_DBError(t *testing.T) {
	repo, mock := newOwnershipRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(errDB)

	_, err := repo.IsApprovedOwner(context.Background(), "gem-1", "user-1")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestOwnershipListByRubygem_Success(t *testing.T) {
	repo, mock := newOwnershipRepo(t)
	email := "dev@example.com"
	mock.ExpectQuery("SELECT.*FROM ownerships o.*LEFT JOIN users u").
		WithArgs("gem-1").
		WillReturnRows(sqlmock.NewRows(ownershipCols).
			AddRow("own-1", "gem-1", "user-1", true, time.Now(), &email).
			AddRow("own-2", "gem-1", "user-2", false, time.Now(), nil))

	ownerships, err := repo.ListByRubygem(context.Background(), "gem-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ownerships) != 2 {
		t.Fatalf("len(ownerships) = %d, want 2", len(ownerships))
	}
	if !ownerships[0].Approved || ownerships[0].UserEmail == nil {
		t.Errorf("ownerships[0] = %+v, want approved with email", ownerships[0])
	}
	if ownerships[1].Approved {
		t.Error("ownerships[1].Approved = true, want false")
	}
}

func TestOwnershipListByRubygem_DBError(t *testing.T) {
	repo, mock := newOwnershipRepo(t)
	mock.ExpectQuery("SELECT.*FROM ownerships o").
		WillReturnError(errDB)

	_, err := repo.ListByRubygem(context.Background(), "gem-1")
	if err == nil {
		t.Error("expected error, got nil")
	}
}
