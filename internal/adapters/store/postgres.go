// Package store contains the persistence implementations behind core.Store:
// Postgres for production, an in-memory store for tests and local runs.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/aona/duolink/internal/core"
	"github.com/aona/duolink/internal/domain"
)

// Postgres implements core.Store on raw SQL. The exactly-once claim rides on
// SELECT ... FOR UPDATE SKIP LOCKED; close handshakes serialize on a plain
// FOR UPDATE of the room row.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ core.Store = (*Postgres)(nil)

// Open connects and pings. The caller owns closing the handle.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (p *Postgres) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Match runs one match attempt in a single transaction.
func (p *Postgres) Match(ctx context.Context, fn func(core.MatchTx) error) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&pgMatchTx{ctx: ctx, tx: tx})
	})
}

// Close runs one close request in a single transaction.
func (p *Postgres) Close(ctx context.Context, fn func(core.CloseTx) error) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&pgCloseTx{ctx: ctx, tx: tx})
	})
}

type pgMatchTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *pgMatchTx) ClaimOpenRecruitment(id uuid.UUID) (*domain.Recruitment, error) {
	// SKIP LOCKED makes a losing claimant miss instead of queueing behind the
	// winner, so it observes "unavailable" fast.
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT id, user_id, game, region, start_time, desired_role, memo,
		       play_style, has_microphone, ip_hash, status, expires_at, created_at
		FROM recruitments
		WHERE id = $1 AND status = 'open' AND expires_at > now()
		FOR UPDATE SKIP LOCKED
	`, id)
	rec, err := scanRecruitment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim recruitment: %w", err)
	}
	return rec, nil
}

func (t *pgMatchTx) BlockedEitherWay(a, b uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check blocks: %w", err)
	}
	return exists, nil
}

func (t *pgMatchTx) HasActiveRoom(userID uuid.UUID) (bool, error) {
	return hasActiveRoom(t.ctx, t.tx, userID)
}

func (t *pgMatchTx) MarkMatched(id uuid.UUID) error {
	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE recruitments SET status = 'matched' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark matched: %w", err)
	}
	return nil
}

func (t *pgMatchTx) InsertRoom(room *domain.Room) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO rooms (id, recruitment_id, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, room.ID, room.RecruitmentID, room.Status, room.ExpiresAt, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (t *pgMatchTx) InsertRoomMember(m *domain.RoomMember) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO room_members (id, room_id, user_id, role, ready_to_close)
		VALUES ($1, $2, $3, NULLIF($4, ''), false)
	`, m.ID, m.RoomID, m.UserID, m.Role)
	if err != nil {
		return fmt.Errorf("insert room member: %w", err)
	}
	return nil
}

type pgCloseTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *pgCloseTx) LockRoom(id uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT id, recruitment_id, status, expires_at, created_at
		FROM rooms WHERE id = $1
		FOR UPDATE
	`, id).Scan(&room.ID, &room.RecruitmentID, &room.Status, &room.ExpiresAt, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}
	return &room, nil
}

func (t *pgCloseTx) Members(roomID uuid.UUID) ([]domain.RoomMember, error) {
	return roomMembers(t.ctx, t.tx, roomID)
}

func (t *pgCloseTx) SetReadyToClose(roomID, userID uuid.UUID) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE room_members SET ready_to_close = true
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID)
	if err != nil {
		return fmt.Errorf("set ready_to_close: %w", err)
	}
	return nil
}

func (t *pgCloseTx) SetRoomStatus(roomID uuid.UUID, status domain.RoomStatus) error {
	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE rooms SET status = $2 WHERE id = $1`, roomID, status)
	if err != nil {
		return fmt.Errorf("set room status: %w", err)
	}
	return nil
}

// querier lets the per-entity helpers run against *sql.DB and *sql.Tx alike.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
