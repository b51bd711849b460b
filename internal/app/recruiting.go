package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/core"
	"github.com/aona/duolink/internal/domain"
)

// Recruiting is the CRUD surface around the matching engine: listing,
// posting and cancelling recruitments.
type Recruiting struct {
	store       core.Store
	push        core.Pusher
	mod         core.Moderator
	catalog     core.Catalog
	ttl         time.Duration
	dedupWindow time.Duration
}

func NewRecruiting(store core.Store, push core.Pusher, mod core.Moderator, catalog core.Catalog, ttl time.Duration) *Recruiting {
	return &Recruiting{
		store:       store,
		push:        push,
		mod:         mod,
		catalog:     catalog,
		ttl:         ttl,
		dedupWindow: 5 * time.Minute,
	}
}

type CreateRecruitmentInput struct {
	Game          string
	Region        string
	StartTime     time.Time
	DesiredRole   string
	Memo          string
	PlayStyle     domain.PlayStyle
	HasMicrophone bool
	IPHash        string
}

// List returns open, unexpired recruitments, oldest first.
func (s *Recruiting) List(ctx context.Context) ([]domain.Recruitment, error) {
	return s.store.ListOpenRecruitments(ctx, time.Now().UTC())
}

func (s *Recruiting) Get(ctx context.Context, id uuid.UUID) (*domain.Recruitment, error) {
	return s.store.GetRecruitment(ctx, id)
}

func (s *Recruiting) Create(ctx context.Context, userID uuid.UUID, in CreateRecruitmentInput) (*domain.Recruitment, error) {
	if !s.catalog.ValidGame(in.Game) {
		return nil, domain.ErrInvalidGame
	}
	if !s.catalog.ValidRegion(in.Region) {
		return nil, domain.ErrInvalidRegion
	}
	in.DesiredRole = strings.TrimSpace(in.DesiredRole)
	in.Memo = strings.TrimSpace(in.Memo)
	if in.Memo != "" {
		if err := s.mod.CheckContent(ctx, "memo", in.Memo); err != nil {
			return nil, err
		}
	}
	if in.DesiredRole != "" {
		if err := s.mod.CheckContent(ctx, "desired_role", in.DesiredRole); err != nil {
			return nil, err
		}
	}

	busy, err := s.store.HasActiveRoom(ctx, userID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, domain.ErrAlreadyInRoom
	}
	open, err := s.store.HasOpenRecruitment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domain.ErrOpenRecruitmentExists
	}

	now := time.Now().UTC()
	if in.IPHash != "" {
		dup, err := s.store.HasRecentDuplicate(ctx, in.IPHash, in.Game, in.Region, now.Add(-s.dedupWindow))
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, domain.ErrDuplicateRecent
		}
	}

	rec := &domain.Recruitment{
		ID:            uuid.New(),
		UserID:        userID,
		Game:          in.Game,
		Region:        in.Region,
		StartTime:     in.StartTime,
		DesiredRole:   in.DesiredRole,
		Memo:          in.Memo,
		PlayStyle:     in.PlayStyle,
		HasMicrophone: in.HasMicrophone,
		IPHash:        in.IPHash,
		Status:        domain.RecruitmentOpen,
		ExpiresAt:     now.Add(s.ttl),
		CreatedAt:     now,
	}
	if err := s.store.CreateRecruitment(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().Str("module", "app.recruiting").
		Str("recruitment", rec.ID.String()).
		Str("game", rec.Game).
		Str("region", rec.Region).
		Msg("recruitment created")
	s.push.BroadcastToLobby(RecruitmentUpdateEvent(ActionCreated, rec.ID))
	return rec, nil
}

// Cancel retires the caller's own open recruitment.
func (s *Recruiting) Cancel(ctx context.Context, id, userID uuid.UUID) error {
	rec, err := s.store.GetRecruitment(ctx, id)
	if err != nil {
		return err
	}
	if rec.UserID != userID {
		return domain.ErrNotOwner
	}
	ok, err := s.store.CancelRecruitment(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race against the matcher or the sweeper.
		return domain.ErrUnavailable
	}
	s.push.BroadcastToLobby(RecruitmentUpdateEvent(ActionCancelled, id))
	return nil
}

// HashAddr fingerprints a client address for abuse dedup. Not an identity.
func HashAddr(addr string) string {
	if addr == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])
}
