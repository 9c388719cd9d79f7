package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/data/pgxutil"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// ActivityRepo provides Postgres-backed access to the append-only point log.
type ActivityRepo struct {
	DB *sql.DB
}

var _ core.ActivityRepository = (*ActivityRepo)(nil)

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{DB: db}
}

// Append records one credit.
func (r *ActivityRepo) Append(ctx context.Context, entry *model.Activity) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO activities (id, user_id, kind, points, time_saved_sec, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, entry.UserID, entry.Kind, entry.Points,
			entry.TimeSavedSec, entry.OccurredAt)
		return err
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// TotalsSince sums activity per user for entries at or after since.
func (r *ActivityRepo) TotalsSince(ctx context.Context, since time.Time) (map[string]core.ActivityTotals, error) {
	out := make(map[string]core.ActivityTotals)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT user_id,
				COALESCE(SUM(points), 0),
				COALESCE(SUM(time_saved_sec), 0),
				COUNT(*) FILTER (WHERE kind = 'referral')
			FROM activities
			WHERE occurred_at >= $1
			GROUP BY user_id`, since)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var userID string
			var t core.ActivityTotals
			if err := rows.Scan(&userID, &t.Points, &t.TimeSavedSec, &t.Referrals); err != nil {
				return err
			}
			out[userID] = t
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// ListByUser returns the user's entries most-recent-first.
func (r *ActivityRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Activity, error) {
	q := `SELECT id, user_id, kind, points, time_saved_sec, occurred_at
		FROM activities WHERE user_id = $1 ORDER BY occurred_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	var out []*model.Activity
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a model.Activity
			if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Points,
				&a.TimeSavedSec, &a.OccurredAt); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}
