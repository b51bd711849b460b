package core

import (
	"context"

	"github.com/google/uuid"
)

// Frame is a raw payload pushed over a live connection.
type Frame []byte

// Conn abstracts one live client connection.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// Pusher is the fanout surface services use to emit events. Delivery is
// best-effort; a failed push never fails the operation that triggered it.
type Pusher interface {
	SendToUser(userID uuid.UUID, f Frame)
	SendToUsers(userIDs []uuid.UUID, f Frame)
	BroadcastToLobby(f Frame)
}

// Moderator screens user-authored text before it is persisted.
// The real implementation lives outside this service.
type Moderator interface {
	CheckContent(ctx context.Context, field, text string) error
}

// Catalog answers which games and regions are currently recruitable.
// Backed by an external catalog service.
type Catalog interface {
	ValidGame(id string) bool
	ValidRegion(id string) bool
}
