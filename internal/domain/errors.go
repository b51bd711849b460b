package domain

import "errors"

// Typed results of matching and lifecycle operations. Handlers map these onto
// HTTP statuses; the services never wrap them so callers can errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrUnavailable            = errors.New("recruitment is no longer claimable")
	ErrSelfJoin               = errors.New("cannot join your own recruitment")
	ErrBlocked                = errors.New("match blocked between these users")
	ErrAlreadyInRoom          = errors.New("user already has an active room")
	ErrAlreadyRequested       = errors.New("close already requested")
	ErrDuplicateFeedback      = errors.New("feedback already submitted")
	ErrSelfFeedback           = errors.New("cannot give feedback to yourself")
	ErrNotMember              = errors.New("not a member of this room")
	ErrNotOwner               = errors.New("not the owner of this recruitment")
	ErrRoomNotActive          = errors.New("room is not active")
	ErrRoomNotClosed          = errors.New("room must be closed first")
	ErrOpenRecruitmentExists  = errors.New("user already has an open recruitment")
	ErrDuplicateRecent        = errors.New("similar recruitment created recently")
	ErrSelfBlock              = errors.New("cannot block yourself")
	ErrAlreadyBlocked         = errors.New("user already blocked")
	ErrInvalidGame            = errors.New("invalid game")
	ErrInvalidRegion          = errors.New("invalid region")
	ErrInvalidMessage         = errors.New("message empty or too long")
)
