package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGet(ctx context.Context, db executor, key string, now time.Time) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `
		SELECT value FROM response_cache
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		key, now,
	).Scan(&value)
	return value, err
}

func queryUpsert(ctx context.Context, db executor, key string, value []byte, expires *time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO response_cache (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, nullTimePtr(expires),
	)
	return err
}

func queryDelete(ctx context.Context, db executor, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM response_cache WHERE key = $1`, key)
	return err
}

func queryDeletePrefix(ctx context.Context, db executor, prefix string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM response_cache WHERE key LIKE $1`, likePrefix(prefix))
	return err
}

func queryExists(ctx context.Context, db executor, key string, now time.Time) (bool, error) {
	var ok bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM response_cache
			WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
		)`,
		key, now,
	).Scan(&ok)
	return ok, err
}

func queryPurge(ctx context.Context, db executor, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// likePrefix escapes LIKE metacharacters in prefix and appends a wildcard.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
