package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aona/duolink/internal/domain"
)

func (p *Postgres) ListBlocks(ctx context.Context, blockerID uuid.UUID) ([]domain.Block, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, blocker_id, blocked_id, created_at
		FROM blocks WHERE blocker_id = $1
		ORDER BY created_at DESC
	`, blockerID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var out []domain.Block
	for rows.Next() {
		var b domain.Block
		if err := rows.Scan(&b.ID, &b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertBlock(ctx context.Context, b *domain.Block) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO blocks (id, blocker_id, blocked_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, b.ID, b.BlockerID, b.BlockedID, b.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyBlocked
	}
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2
	`, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("delete block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete block: %w", err)
	}
	return n > 0, nil
}
