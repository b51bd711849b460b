package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/core"
	"github.com/aona/duolink/internal/domain"
)

type CloseOutcome string

const (
	ClosePending CloseOutcome = "pending_close"
	CloseDone    CloseOutcome = "closed"
)

// Rooms owns the active -> closed transition of a room (the mutual close
// handshake), post-close feedback, and in-room messaging.
type Rooms struct {
	store core.Store
	push  core.Pusher
	mod   core.Moderator
}

func NewRooms(store core.Store, push core.Pusher, mod core.Moderator) *Rooms {
	return &Rooms{store: store, push: push, mod: mod}
}

// RoomView is the membership-gated read model of one room.
type RoomView struct {
	domain.Room
	Game    string              `json:"game"`
	Region  string              `json:"region"`
	Members []domain.RoomMember `json:"members"`
}

func (s *Rooms) Room(ctx context.Context, roomID, userID uuid.UUID) (*RoomView, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !isMember(members, userID) {
		return nil, domain.ErrNotMember
	}
	view := &RoomView{Room: *room, Members: members}
	if rec, err := s.store.GetRecruitment(ctx, room.RecruitmentID); err == nil {
		view.Game = rec.Game
		view.Region = rec.Region
	}
	return view, nil
}

// RequestClose flips the caller's ready flag and closes the room once every
// member has raised theirs. The check-set-check runs as one transaction with
// the room row locked first, so two concurrent requests cannot interleave.
func (s *Rooms) RequestClose(ctx context.Context, roomID, userID uuid.UUID) (CloseOutcome, error) {
	var (
		outcome   CloseOutcome
		memberIDs []uuid.UUID
	)
	err := s.store.Close(ctx, func(tx core.CloseTx) error {
		room, err := tx.LockRoom(roomID)
		if err != nil {
			return err
		}
		if room.Status != domain.RoomActive {
			return domain.ErrRoomNotActive
		}
		members, err := tx.Members(roomID)
		if err != nil {
			return err
		}
		var mine *domain.RoomMember
		memberIDs = memberIDs[:0]
		for i := range members {
			memberIDs = append(memberIDs, members[i].UserID)
			if members[i].UserID == userID {
				mine = &members[i]
			}
		}
		if mine == nil {
			return domain.ErrNotMember
		}
		if mine.ReadyToClose {
			return domain.ErrAlreadyRequested
		}
		if err := tx.SetReadyToClose(roomID, userID); err != nil {
			return err
		}
		mine.ReadyToClose = true

		for i := range members {
			if !members[i].ReadyToClose {
				outcome = ClosePending
				return nil
			}
		}
		outcome = CloseDone
		return tx.SetRoomStatus(roomID, domain.RoomClosed)
	})
	if err != nil {
		return "", err
	}

	if outcome == CloseDone {
		log.Info().Str("module", "app.rooms").Str("room", roomID.String()).Msg("room closed")
		s.push.SendToUsers(memberIDs, RoomClosedEvent(roomID))
	} else {
		s.push.SendToUsers(memberIDs, CloseRequestedEvent(roomID, userID))
	}
	return outcome, nil
}

// SubmitFeedback records the caller's single rating of the other member once
// the room has ended.
func (s *Rooms) SubmitFeedback(ctx context.Context, roomID, fromID, toID uuid.UUID, rating domain.Rating) error {
	if fromID == toID {
		return domain.ErrSelfFeedback
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status == domain.RoomActive {
		return domain.ErrRoomNotClosed
	}
	members, err := s.store.RoomMembers(ctx, roomID)
	if err != nil {
		return err
	}
	if !isMember(members, fromID) || !isMember(members, toID) {
		return domain.ErrNotMember
	}
	return s.store.InsertFeedback(ctx, &domain.Feedback{
		ID:         uuid.New(),
		RoomID:     roomID,
		FromUserID: fromID,
		ToUserID:   toID,
		Rating:     rating,
		CreatedAt:  time.Now().UTC(),
	})
}

// PendingFeedback lists recent ended rooms the user has not yet rated.
func (s *Rooms) PendingFeedback(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.RoomsAwaitingFeedback(ctx, userID, 5)
}

func (s *Rooms) Messages(ctx context.Context, roomID, userID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	members, err := s.store.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !isMember(members, userID) {
		return nil, domain.ErrNotMember
	}
	return s.store.RoomMessages(ctx, roomID)
}

func (s *Rooms) SendMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > domain.MaxMessageLen {
		return nil, domain.ErrInvalidMessage
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomActive {
		return nil, domain.ErrRoomNotActive
	}
	members, err := s.store.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !isMember(members, userID) {
		return nil, domain.ErrNotMember
	}
	if err := s.mod.CheckContent(ctx, "message", content); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	memberIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
	}
	s.push.SendToUsers(memberIDs, NewMessageEvent(roomID))
	return msg, nil
}

func isMember(members []domain.RoomMember, userID uuid.UUID) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
