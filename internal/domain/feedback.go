package domain

import (
	"time"

	"github.com/google/uuid"
)

type Rating string

const (
	RatingThumbsUp   Rating = "thumbs_up"
	RatingThumbsDown Rating = "thumbs_down"
)

func ValidRating(r Rating) bool {
	return r == RatingThumbsUp || r == RatingThumbsDown
}

// Feedback is one member's rating of the other after a room ended.
// At most one per (room, from_user).
type Feedback struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUserID   uuid.UUID `json:"to_user_id"`
	Rating     Rating    `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}
