package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aona/duolink/internal/domain"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func (p *Postgres) GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	err := p.db.QueryRowContext(ctx, `
		SELECT id, recruitment_id, status, expires_at, created_at
		FROM rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.RecruitmentID, &room.Status, &room.ExpiresAt, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

func roomMembers(ctx context.Context, q querier, roomID uuid.UUID) ([]domain.RoomMember, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, room_id, user_id, COALESCE(role, ''), ready_to_close
		FROM room_members WHERE room_id = $1
		ORDER BY created_at ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}
	defer rows.Close()

	var out []domain.RoomMember
	for rows.Next() {
		var m domain.RoomMember
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Role, &m.ReadyToClose); err != nil {
			return nil, fmt.Errorf("scan room member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) RoomMembers(ctx context.Context, roomID uuid.UUID) ([]domain.RoomMember, error) {
	return roomMembers(ctx, p.db, roomID)
}

func hasActiveRoom(ctx context.Context, q querier, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM room_members rm
			JOIN rooms r ON r.id = rm.room_id
			WHERE rm.user_id = $1 AND r.status = 'active'
		)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active room: %w", err)
	}
	return exists, nil
}

func (p *Postgres) HasActiveRoom(ctx context.Context, userID uuid.UUID) (bool, error) {
	return hasActiveRoom(ctx, p.db, userID)
}

func (p *Postgres) InsertMessage(ctx context.Context, m *domain.Message) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.RoomID, m.UserID, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (p *Postgres) RoomMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, room_id, user_id, content, created_at
		FROM messages WHERE room_id = $1
		ORDER BY created_at ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertFeedback(ctx context.Context, f *domain.Feedback) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO feedbacks (id, room_id, from_user_id, to_user_id, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.RoomID, f.FromUserID, f.ToUserID, f.Rating, f.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateFeedback
	}
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (p *Postgres) RoomsAwaitingFeedback(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.id FROM rooms r
		JOIN room_members rm ON rm.room_id = r.id
		WHERE rm.user_id = $1
		  AND r.status IN ('closed', 'expired')
		  AND r.id NOT IN (SELECT room_id FROM feedbacks WHERE from_user_id = $1)
		ORDER BY r.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("rooms awaiting feedback: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) ExpireRooms(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rooms SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire rooms: %w", err)
	}
	return res.RowsAffected()
}
