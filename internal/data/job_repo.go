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

const jobColumns = `id, user_id, type, status, tier, input_duration_sec, input_url,
	result_url, error, points_earned, time_saved_sec, created_at, started_at, completed_at`

// JobRepo provides Postgres-backed access to processing jobs. State
// transitions are guarded in the WHERE clause so a terminal job can
// never transition again regardless of caller interleaving.
type JobRepo struct {
	DB *sql.DB
}

var _ core.JobRepository = (*JobRepo)(nil)

// NewJobRepo creates a new JobRepo.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{DB: db}
}

// Create stores a new job.
func (r *JobRepo) Create(ctx context.Context, job *model.Job) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO jobs (id, user_id, type, status, tier, input_duration_sec,
				input_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			job.ID, job.UserID, job.Type, job.Status, job.Tier,
			job.InputDurationSec, job.InputURL, job.CreatedAt)
		return err
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// GetByID returns the job or a NotFound error.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var out model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		return scanJob(row, &out)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListByUser returns the user's jobs most-recent-first.
func (r *JobRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	var out []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var j model.Job
			if err := scanJob(rows, &j); err != nil {
				return err
			}
			out = append(out, &j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// ListPending returns every job still queued or running, oldest first.
func (r *JobRepo) ListPending(ctx context.Context) ([]*model.Job, error) {
	var out []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+jobColumns+` FROM jobs
			WHERE status IN ('queued', 'running') ORDER BY created_at, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var j model.Job
			if err := scanJob(rows, &j); err != nil {
				return err
			}
			out = append(out, &j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// MarkRunning transitions queued to running.
func (r *JobRepo) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx, `
		UPDATE jobs SET status = 'running', started_at = $2
		WHERE id = $1 AND status = 'queued'`, id, at)
}

// Complete transitions running to done and records the reward.
func (r *JobRepo) Complete(ctx context.Context, id string, p core.CompleteJobParams) (bool, error) {
	return r.transition(ctx, `
		UPDATE jobs SET status = 'done', completed_at = $2, result_url = $3,
			points_earned = $4, time_saved_sec = $5
		WHERE id = $1 AND status = 'running'`,
		id, p.At, p.ResultURL, p.Points, p.TimeSavedSec)
}

// Fail transitions queued or running to failed.
func (r *JobRepo) Fail(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	return r.transition(ctx, `
		UPDATE jobs SET status = 'failed', completed_at = $2, error = $3
		WHERE id = $1 AND status IN ('queued', 'running')`, id, at, reason)
}

// transition runs a guarded UPDATE and reports whether a row changed.
func (r *JobRepo) transition(ctx context.Context, query string, args ...any) (bool, error) {
	var changed bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return changed, nil
}

// StatsByUser aggregates the user's jobs by status plus reward totals.
func (r *JobRepo) StatsByUser(ctx context.Context, userID string) (*model.JobStats, error) {
	var out model.JobStats
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE status = 'queued'),
				COUNT(*) FILTER (WHERE status = 'running'),
				COUNT(*) FILTER (WHERE status = 'done'),
				COUNT(*) FILTER (WHERE status = 'failed'),
				COUNT(*),
				COALESCE(SUM(points_earned), 0),
				COALESCE(SUM(time_saved_sec), 0)
			FROM jobs WHERE user_id = $1`, userID)
		return row.Scan(&out.Queued, &out.Running, &out.Done, &out.Failed,
			&out.Total, &out.PointsEarned, &out.TimeSavedSec)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

func scanJob(row pgx.Row, j *model.Job) error {
	return row.Scan(
		&j.ID, &j.UserID, &j.Type, &j.Status, &j.Tier, &j.InputDurationSec,
		&j.InputURL, &j.ResultURL, &j.Error, &j.PointsEarned, &j.TimeSavedSec,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt,
	)
}
