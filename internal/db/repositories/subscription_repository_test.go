package repositories

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newSubscriptionRepo(t *testing.T) (*SubscriptionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSubscriptionRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestIsSubscribed_True(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("gem-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	subscribed, err := repo.IsSubscribed(context.Background(), "gem-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !subscribed {
		t.Error("expected subscribed = true")
	}
}

func TestIsSubscribed_False(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	subscribed, err := repo.IsSubscribed(context.Background(), "gem-1", "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subscribed {
		t.Error("expected subscribed = false")
	}
}

func TestSubscribe_Success(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("gem-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Subscribe(context.Background(), "gem-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubscribe_Duplicate(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	// ON CONFLICT DO NOTHING reports zero rows affected; still no error.
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("gem-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Subscribe(context.Background(), "gem-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnsubscribe_Success(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	mock.ExpectExec("DELETE FROM subscriptions").
		WithArgs("gem-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Unsubscribe(context.Background(), "gem-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnsubscribe_DBError(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	mock.ExpectExec("DELETE FROM subscriptions").
		WillReturnError(errDB)

	if err := repo.Unsubscribe(context.Background(), "gem-1", "user-1"); err == nil {
		t.Error("expected error, got nil")
	}
}
