package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aona/duolink/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecruitment(row rowScanner) (*domain.Recruitment, error) {
	var (
		rec         domain.Recruitment
		desiredRole sql.NullString
		memo        sql.NullString
		playStyle   sql.NullString
		ipHash      sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Game, &rec.Region, &rec.StartTime,
		&desiredRole, &memo, &playStyle, &rec.HasMicrophone, &ipHash,
		&rec.Status, &rec.ExpiresAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.DesiredRole = desiredRole.String
	rec.Memo = memo.String
	rec.PlayStyle = domain.PlayStyle(playStyle.String)
	rec.IPHash = ipHash.String
	return &rec, nil
}

const recruitmentColumns = `
	id, user_id, game, region, start_time, desired_role, memo,
	play_style, has_microphone, ip_hash, status, expires_at, created_at`

func (p *Postgres) ListOpenRecruitments(ctx context.Context, now time.Time) ([]domain.Recruitment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+recruitmentColumns+`
		FROM recruitments
		WHERE status = 'open' AND expires_at > $1
		ORDER BY created_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list recruitments: %w", err)
	}
	defer rows.Close()

	var out []domain.Recruitment
	for rows.Next() {
		rec, err := scanRecruitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recruitment: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (p *Postgres) GetRecruitment(ctx context.Context, id uuid.UUID) (*domain.Recruitment, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+recruitmentColumns+`
		FROM recruitments WHERE id = $1
	`, id)
	rec, err := scanRecruitment(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recruitment: %w", err)
	}
	return rec, nil
}

func (p *Postgres) CreateRecruitment(ctx context.Context, r *domain.Recruitment) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO recruitments (
			id, user_id, game, region, start_time, desired_role, memo,
			play_style, has_microphone, ip_hash, status, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''),
			NULLIF($8, ''), $9, NULLIF($10, ''), $11, $12, $13
		)
	`, r.ID, r.UserID, r.Game, r.Region, r.StartTime, r.DesiredRole, r.Memo,
		string(r.PlayStyle), r.HasMicrophone, r.IPHash, r.Status, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert recruitment: %w", err)
	}
	return nil
}

func (p *Postgres) CancelRecruitment(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE recruitments SET status = 'cancelled'
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, fmt.Errorf("cancel recruitment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel recruitment: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) HasOpenRecruitment(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM recruitments WHERE user_id = $1 AND status = 'open'
		)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open recruitment: %w", err)
	}
	return exists, nil
}

func (p *Postgres) HasRecentDuplicate(ctx context.Context, ipHash, game, region string, since time.Time) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM recruitments
			WHERE ip_hash = $1 AND game = $2 AND region = $3
			  AND status = 'open' AND created_at > $4
		)
	`, ipHash, game, region, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent duplicate: %w", err)
	}
	return exists, nil
}

func (p *Postgres) ExpireRecruitments(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE recruitments SET status = 'expired'
		WHERE status = 'open' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire recruitments: %w", err)
	}
	return res.RowsAffected()
}
