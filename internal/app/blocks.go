package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aona/duolink/internal/core"
	"github.com/aona/duolink/internal/domain"
)

// Blocks manages a user's block list. The matcher consults blocks in both
// directions through its own transaction.
type Blocks struct {
	store core.Store
}

func NewBlocks(store core.Store) *Blocks {
	return &Blocks{store: store}
}

func (s *Blocks) List(ctx context.Context, blockerID uuid.UUID) ([]domain.Block, error) {
	return s.store.ListBlocks(ctx, blockerID)
}

func (s *Blocks) Create(ctx context.Context, blockerID, blockedID uuid.UUID) (*domain.Block, error) {
	if blockerID == blockedID {
		return nil, domain.ErrSelfBlock
	}
	b := &domain.Block{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertBlock(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Blocks) Delete(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	ok, err := s.store.DeleteBlock(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
