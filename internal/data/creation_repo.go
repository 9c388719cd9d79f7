package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/data/pgxutil"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// CreationRepo provides Postgres-backed access to creation records.
type CreationRepo struct {
	DB *sql.DB
}

var _ core.CreationRepository = (*CreationRepo)(nil)

// NewCreationRepo creates a new CreationRepo.
func NewCreationRepo(db *sql.DB) *CreationRepo {
	return &CreationRepo{DB: db}
}

// Create stores a new creation record.
func (r *CreationRepo) Create(ctx context.Context, c *model.Creation) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO creations (id, user_id, job_id, title, url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.UserID, c.JobID, c.Title, c.URL, c.CreatedAt)
		return err
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// ListByUser returns the user's creations most-recent-first.
func (r *CreationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Creation, error) {
	q := `SELECT id, user_id, job_id, title, url, created_at
		FROM creations WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	var out []*model.Creation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c model.Creation
			if err := rows.Scan(&c.ID, &c.UserID, &c.JobID, &c.Title,
				&c.URL, &c.CreatedAt); err != nil {
				return err
			}
			out = append(out, &c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}
