package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomStatus string

const (
	RoomActive  RoomStatus = "active"
	RoomClosed  RoomStatus = "closed"
	RoomExpired RoomStatus = "expired"
)

// Room is a private two-member chat session resulting from exactly one match.
type Room struct {
	ID            uuid.UUID  `json:"id"`
	RecruitmentID uuid.UUID  `json:"recruitment_id"`
	Status        RoomStatus `json:"status"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RoomMember is one user's seat in a room. Unique per (room, user).
type RoomMember struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	UserID       uuid.UUID `json:"user_id"`
	Role         string    `json:"role,omitempty"`
	ReadyToClose bool      `json:"ready_to_close"`
}
