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

const referralColumns = `id, referrer_id, referred_id, code, status, created_at, credited_at`

// ReferralRepo provides Postgres-backed access to referral records.
// The referred_id unique constraint rejects double referrals and the
// guarded Credit UPDATE makes the bonus payable exactly once.
type ReferralRepo struct {
	DB *sql.DB
}

var _ core.ReferralRepository = (*ReferralRepo)(nil)

// NewReferralRepo creates a new ReferralRepo.
func NewReferralRepo(db *sql.DB) *ReferralRepo {
	return &ReferralRepo{DB: db}
}

// Create stores a pending referral.
func (r *ReferralRepo) Create(ctx context.Context, ref *model.Referral) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO referrals (id, referrer_id, referred_id, code, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ref.ID, ref.ReferrerID, ref.ReferredID, ref.Code, ref.Status, ref.CreatedAt)
		return err
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// GetByID returns the referral or a NotFound error.
func (r *ReferralRepo) GetByID(ctx context.Context, id string) (*model.Referral, error) {
	var out model.Referral
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT `+referralColumns+` FROM referrals WHERE id = $1`, id)
		return scanReferral(row, &out)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Credit transitions pending to credited, once.
func (r *ReferralRepo) Credit(ctx context.Context, id string, at time.Time) (bool, error) {
	var changed bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE referrals SET status = 'credited', credited_at = $2
			WHERE id = $1 AND status = 'pending'`, id, at)
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

// ListByReferrer returns the user's referrals most-recent-first.
func (r *ReferralRepo) ListByReferrer(ctx context.Context, referrerID string) ([]*model.Referral, error) {
	var out []*model.Referral
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+referralColumns+` FROM referrals
			WHERE referrer_id = $1 ORDER BY created_at DESC, id DESC`, referrerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ref model.Referral
			if err := scanReferral(rows, &ref); err != nil {
				return err
			}
			out = append(out, &ref)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

func scanReferral(row pgx.Row, ref *model.Referral) error {
	return row.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Code,
		&ref.Status, &ref.CreatedAt, &ref.CreditedAt)
}
