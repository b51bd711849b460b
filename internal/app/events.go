package app

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/core"
)

// Event is the envelope of every payload pushed over a live connection.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	ActionCreated   = "created"
	ActionCancelled = "cancelled"
	ActionMatched   = "matched"
)

func frame(typ string, data any) core.Frame {
	b, err := json.Marshal(Event{Type: typ, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Str("type", typ).Msg("marshal event")
		return nil
	}
	return b
}

func RecruitmentUpdateEvent(action string, recruitmentID uuid.UUID) core.Frame {
	return frame("recruitment_update", map[string]string{
		"action":         action,
		"recruitment_id": recruitmentID.String(),
	})
}

func MatchCreatedEvent(roomID uuid.UUID) core.Frame {
	return frame("match_created", map[string]string{"room_id": roomID.String()})
}

func CloseRequestedEvent(roomID, userID uuid.UUID) core.Frame {
	return frame("close_requested", map[string]string{
		"room_id": roomID.String(),
		"user_id": userID.String(),
	})
}

func RoomClosedEvent(roomID uuid.UUID) core.Frame {
	return frame("room_closed", map[string]string{"room_id": roomID.String()})
}

func NewMessageEvent(roomID uuid.UUID) core.Frame {
	return frame("new_message", map[string]string{"room_id": roomID.String()})
}
