package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/core"
	"github.com/aona/duolink/internal/domain"
)

// Matcher decides, atomically, whether a joiner may claim an open recruitment.
// At most one of N concurrent attempts against the same recruitment wins; the
// losers observe domain.ErrUnavailable.
type Matcher struct {
	store   core.Store
	push    core.Pusher
	roomTTL time.Duration
}

func NewMatcher(store core.Store, push core.Pusher, roomTTL time.Duration) *Matcher {
	return &Matcher{store: store, push: push, roomTTL: roomTTL}
}

// AttemptMatch claims the recruitment for joinerID and creates the room with
// its two memberships in one transaction. Returns a typed rejection otherwise.
func (m *Matcher) AttemptMatch(ctx context.Context, recruitmentID, joinerID uuid.UUID) (*domain.Room, error) {
	// Existence is the only pre-check; everything else is verified under the
	// claim, so an unclaimable recruitment always reports availability first.
	if _, err := m.store.GetRecruitment(ctx, recruitmentID); err != nil {
		return nil, err
	}

	var (
		room    *domain.Room
		ownerID uuid.UUID
	)
	err := m.store.Match(ctx, func(tx core.MatchTx) error {
		claimed, err := tx.ClaimOpenRecruitment(recruitmentID)
		if err != nil {
			return err
		}
		if claimed == nil {
			return domain.ErrUnavailable
		}
		if claimed.UserID == joinerID {
			return domain.ErrSelfJoin
		}
		ownerID = claimed.UserID

		blocked, err := tx.BlockedEitherWay(ownerID, joinerID)
		if err != nil {
			return err
		}
		if blocked {
			return domain.ErrBlocked
		}

		for _, uid := range []uuid.UUID{ownerID, joinerID} {
			busy, err := tx.HasActiveRoom(uid)
			if err != nil {
				return err
			}
			if busy {
				return domain.ErrAlreadyInRoom
			}
		}

		if err := tx.MarkMatched(recruitmentID); err != nil {
			return err
		}

		now := time.Now().UTC()
		room = &domain.Room{
			ID:            uuid.New(),
			RecruitmentID: recruitmentID,
			Status:        domain.RoomActive,
			ExpiresAt:     now.Add(m.roomTTL),
			CreatedAt:     now,
		}
		if err := tx.InsertRoom(room); err != nil {
			return err
		}
		owner := &domain.RoomMember{
			ID:     uuid.New(),
			RoomID: room.ID,
			UserID: ownerID,
			Role:   claimed.DesiredRole,
		}
		joiner := &domain.RoomMember{
			ID:     uuid.New(),
			RoomID: room.ID,
			UserID: joinerID,
		}
		if err := tx.InsertRoomMember(owner); err != nil {
			return err
		}
		return tx.InsertRoomMember(joiner)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("module", "app.matcher").
		Str("recruitment", recruitmentID.String()).
		Str("room", room.ID.String()).
		Msg("match created")

	// Best-effort: delivery failure never unwinds the committed match.
	m.push.SendToUsers([]uuid.UUID{ownerID, joinerID}, MatchCreatedEvent(room.ID))
	m.push.BroadcastToLobby(RecruitmentUpdateEvent(ActionMatched, recruitmentID))

	return room, nil
}
