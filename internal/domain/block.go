package domain

import (
	"time"

	"github.com/google/uuid"
)

// Block is a directed pair; matching treats it as symmetric.
type Block struct {
	ID        uuid.UUID `json:"id"`
	BlockerID uuid.UUID `json:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}
