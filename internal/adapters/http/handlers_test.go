package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aona/duolink/internal/domain"
)

func TestStatusForMapsRejectionsDistinctly(t *testing.T) {
	cases := map[error]int{
		domain.ErrNotFound:              http.StatusNotFound,
		domain.ErrNotMember:             http.StatusForbidden,
		domain.ErrNotOwner:              http.StatusForbidden,
		domain.ErrUnavailable:           http.StatusConflict,
		domain.ErrBlocked:               http.StatusConflict,
		domain.ErrAlreadyInRoom:         http.StatusConflict,
		domain.ErrDuplicateFeedback:     http.StatusConflict,
		domain.ErrAlreadyBlocked:        http.StatusConflict,
		domain.ErrDuplicateRecent:       http.StatusTooManyRequests,
		domain.ErrSelfJoin:              http.StatusBadRequest,
		domain.ErrAlreadyRequested:      http.StatusBadRequest,
		domain.ErrSelfFeedback:          http.StatusBadRequest,
		domain.ErrRoomNotActive:         http.StatusBadRequest,
		domain.ErrRoomNotClosed:         http.StatusBadRequest,
		domain.ErrOpenRecruitmentExists: http.StatusBadRequest,
		domain.ErrSelfBlock:             http.StatusBadRequest,
		domain.ErrInvalidGame:           http.StatusBadRequest,
		domain.ErrInvalidRegion:         http.StatusBadRequest,
		domain.ErrInvalidMessage:        http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}

	// Infrastructure failures stay opaque.
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("connection refused")))
}
