package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/soundrise/creator-api/internal/core"
	"github.com/soundrise/creator-api/internal/data/pgxutil"
	"github.com/soundrise/creator-api/internal/domain/model"
	apperrors "github.com/soundrise/creator-api/internal/errors"
)

const profileColumns = `user_id, handle, points_total, level, time_saved_sec_total,
	total_jobs, total_creations, total_referrals, badges, created_at, updated_at`

// ProfileRepo provides Postgres-backed access to ledger profiles.
// Per-user serialization is enforced with row-level SELECT ... FOR UPDATE.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.ProfileRepository = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with the real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a ProfileRepo with a custom time provider.
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// Get returns a snapshot of the user's profile.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
		return scanProfile(row, &out)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Create provisions a profile with zeroed counters.
func (r *ProfileRepo) Create(ctx context.Context, userID, handle string) (*model.Profile, error) {
	if handle == "" {
		handle = defaultHandle(userID)
	}
	now := r.timeProvider.Now().UTC()

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			INSERT INTO profiles (user_id, handle, badges, created_at, updated_at)
			VALUES ($1, $2, '{}', $3, $3)
			RETURNING `+profileColumns,
			userID, handle, now)
		return scanProfile(row, &out)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// UpdateAtomic applies fn to the user's row under a row lock, provisioning
// a zeroed profile first when absent.
func (r *ProfileRepo) UpdateAtomic(
	ctx context.Context,
	userID string,
	fn func(p *model.Profile) error,
) (*model.Profile, error) {
	now := r.timeProvider.Now().UTC()

	var out model.Profile
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (user_id, handle, badges, created_at, updated_at)
			VALUES ($1, $2, '{}', $3, $3)
			ON CONFLICT (user_id) DO NOTHING`,
			userID, defaultHandle(userID), now); err != nil {
			return fmt.Errorf("provision profile: %w", err)
		}

		row := tx.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, userID)
		if err := scanProfile(row, &out); err != nil {
			return err
		}

		if err := fn(&out); err != nil {
			return err
		}
		out.UpdatedAt = now

		_, err := tx.Exec(ctx, `
			UPDATE profiles SET
				handle = $2, points_total = $3, level = $4, time_saved_sec_total = $5,
				total_jobs = $6, total_creations = $7, total_referrals = $8,
				badges = $9, updated_at = $10
			WHERE user_id = $1`,
			out.UserID, out.Handle, out.PointsTotal, out.Level, out.TimeSavedSecTotal,
			out.TotalJobs, out.TotalCreations, out.TotalReferrals, out.Badges, out.UpdatedAt)
		return err
	})
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeValidation {
			return nil, err
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List returns every profile from one statement, which reads a single
// consistent snapshot under Postgres MVCC.
func (r *ProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	var out []*model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p model.Profile
			if err := scanProfile(rows, &p); err != nil {
				return err
			}
			out = append(out, &p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// scanProfile scans one profiles row in profileColumns order.
func scanProfile(row pgx.Row, p *model.Profile) error {
	return row.Scan(
		&p.UserID, &p.Handle, &p.PointsTotal, &p.Level, &p.TimeSavedSecTotal,
		&p.TotalJobs, &p.TotalCreations, &p.TotalReferrals, &p.Badges,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

// defaultHandle derives a stable display handle for profiles provisioned
// implicitly on first credit.
func defaultHandle(userID string) string {
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	return "creator-" + short
}
