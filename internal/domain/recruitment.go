// Package domain contains entity without logic, just meta-data
package domain

import (
	"time"

	"github.com/google/uuid"
)

type RecruitmentStatus string

const (
	RecruitmentOpen      RecruitmentStatus = "open"
	RecruitmentMatched   RecruitmentStatus = "matched"
	RecruitmentCancelled RecruitmentStatus = "cancelled"
	RecruitmentExpired   RecruitmentStatus = "expired"
)

type PlayStyle string

const (
	PlayStyleCasual          PlayStyle = "casual"
	PlayStyleCompetitive     PlayStyle = "competitive"
	PlayStyleBeginnerWelcome PlayStyle = "beginner_welcome"
)

const (
	MaxMemoLen = 200
	MaxRoleLen = 50
)

// Recruitment is a public, time-bounded request to be matched with a partner.
// Status only moves forward: open -> matched | cancelled | expired.
type Recruitment struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	Game          string            `json:"game"`
	Region        string            `json:"region"`
	StartTime     time.Time         `json:"start_time"`
	DesiredRole   string            `json:"desired_role,omitempty"`
	Memo          string            `json:"memo,omitempty"`
	PlayStyle     PlayStyle         `json:"play_style,omitempty"`
	HasMicrophone bool              `json:"has_microphone"`
	// IPHash fingerprints the originating address for abuse dedup, never identity.
	IPHash    string            `json:"-"`
	Status    RecruitmentStatus `json:"status"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
}

func ValidPlayStyle(s PlayStyle) bool {
	switch s {
	case "", PlayStyleCasual, PlayStyleCompetitive, PlayStyleBeginnerWelcome:
		return true
	}
	return false
}
