package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jcolombo/paymo/internal/cache"
)

// newMockCache creates a sqlmock-backed cache with automatic cleanup and
// expectation checking, and a frozen clock.
func newMockCache(t *testing.T) (*Cache, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewWithDB(db, cache.Config{DefaultTTL: time.Minute, Prefix: "p:"})
	c.now = func() time.Time { return now }
	return c, mock, now
}

func TestGet(t *testing.T) {
	c, mock, now := newMockCache(t)

	mock.ExpectQuery("SELECT value FROM response_cache").
		WithArgs("p:k", now).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"a":1}`)))

	got, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Get = %q", got)
	}
}

func TestGet_Miss(t *testing.T) {
	c, mock, now := newMockCache(t)

	mock.ExpectQuery("SELECT value FROM response_cache").
		WithArgs("p:gone", now).
		WillReturnError(sql.ErrNoRows)

	_, err := c.Get(context.Background(), "gone")
	if !cache.IsCacheMiss(err) {
		t.Fatalf("Get error = %v, want cache miss", err)
	}
}

func TestGet_Error(t *testing.T) {
	c, mock, now := newMockCache(t)

	mock.ExpectQuery("SELECT value FROM response_cache").
		WithArgs("p:k", now).
		WillReturnError(errors.New("connection reset"))

	_, err := c.Get(context.Background(), "k")
	if err == nil || cache.IsCacheMiss(err) {
		t.Fatalf("Get error = %v, want wrapped driver error", err)
	}
}

func TestSet(t *testing.T) {
	for _, tc := range []struct {
		name    string
		ttl     time.Duration
		expires any
	}{
		{"explicit ttl", 10 * time.Second, sql.NullTime{Time: time.Date(2024, 3, 1, 12, 0, 10, 0, time.UTC), Valid: true}},
		{"default ttl", 0, sql.NullTime{Time: time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC), Valid: true}},
		{"no expiry", -1, sql.NullTime{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, mock, _ := newMockCache(t)
			mock.ExpectExec("INSERT INTO response_cache").
				WithArgs("p:k", []byte("v"), tc.expires).
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := c.Set(context.Background(), "k", []byte("v"), tc.ttl); err != nil {
				t.Fatalf("Set: %v", err)
			}
		})
	}
}

func TestDeleteAndClear(t *testing.T) {
	c, mock, _ := newMockCache(t)

	mock.ExpectExec("DELETE FROM response_cache WHERE key = \\$1").
		WithArgs("p:k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM response_cache WHERE key LIKE \\$1").
		WithArgs("p:%").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := c.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}

func TestExists(t *testing.T) {
	c, mock, now := newMockCache(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("p:k", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := c.Exists(context.Background(), "k")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("Exists = false, want true")
	}
}

func TestPurge(t *testing.T) {
	c, mock, now := newMockCache(t)

	mock.ExpectExec("DELETE FROM response_cache WHERE expires_at IS NOT NULL").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := c.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 4 {
		t.Errorf("Purge = %d, want 4", n)
	}
}

func TestLikePrefix(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"paymo:", "paymo:%"},
		{"a_b%", `a\_b\%%`},
		{"", "%"},
	} {
		if got := likePrefix(tc.input); got != tc.want {
			t.Errorf("likePrefix(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
