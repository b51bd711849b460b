package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aona/duolink/internal/domain"
)

// MatchTx is the transactional surface of one match attempt. Every call runs
// inside the same store transaction; a non-nil error from the callback rolls
// the whole attempt back.
type MatchTx interface {
	// ClaimOpenRecruitment takes an exclusive, non-blocking claim on the
	// recruitment row. Returns nil when the row is missing, no longer open,
	// expired, or currently claimed by a concurrent attempt.
	ClaimOpenRecruitment(id uuid.UUID) (*domain.Recruitment, error)
	BlockedEitherWay(a, b uuid.UUID) (bool, error)
	HasActiveRoom(userID uuid.UUID) (bool, error)
	MarkMatched(id uuid.UUID) error
	InsertRoom(room *domain.Room) error
	InsertRoomMember(m *domain.RoomMember) error
}

// CloseTx is the transactional surface of one close request. LockRoom must
// serialize concurrent close requests against the same room so the
// check-set-check sequence below it cannot interleave.
type CloseTx interface {
	LockRoom(id uuid.UUID) (*domain.Room, error)
	Members(roomID uuid.UUID) ([]domain.RoomMember, error)
	SetReadyToClose(roomID, userID uuid.UUID) error
	SetRoomStatus(roomID uuid.UUID, status domain.RoomStatus) error
}

// Store is the persistence collaborator. Durable state is mutated only through
// it; Match and Close wrap their callbacks in a single transaction.
type Store interface {
	// recruitments
	ListOpenRecruitments(ctx context.Context, now time.Time) ([]domain.Recruitment, error)
	GetRecruitment(ctx context.Context, id uuid.UUID) (*domain.Recruitment, error)
	CreateRecruitment(ctx context.Context, r *domain.Recruitment) error
	// CancelRecruitment flips open->cancelled; reports false when the row was
	// no longer open (lost a race against the matcher or the sweeper).
	CancelRecruitment(ctx context.Context, id uuid.UUID) (bool, error)
	HasOpenRecruitment(ctx context.Context, userID uuid.UUID) (bool, error)
	HasRecentDuplicate(ctx context.Context, ipHash, game, region string, since time.Time) (bool, error)
	HasActiveRoom(ctx context.Context, userID uuid.UUID) (bool, error)

	// one transaction each
	Match(ctx context.Context, fn func(MatchTx) error) error
	Close(ctx context.Context, fn func(CloseTx) error) error

	// rooms
	GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	RoomMembers(ctx context.Context, roomID uuid.UUID) ([]domain.RoomMember, error)

	// messages
	InsertMessage(ctx context.Context, m *domain.Message) error
	RoomMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error)

	// feedback
	InsertFeedback(ctx context.Context, f *domain.Feedback) error
	RoomsAwaitingFeedback(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error)

	// blocks
	ListBlocks(ctx context.Context, blockerID uuid.UUID) ([]domain.Block, error)
	InsertBlock(ctx context.Context, b *domain.Block) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)

	// sweeper
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireRecruitments(ctx context.Context, now time.Time) (int64, error)
	ExpireRooms(ctx context.Context, now time.Time) (int64, error)
}
