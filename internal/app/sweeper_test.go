package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aona/duolink/internal/adapters/store"
	"github.com/aona/duolink/internal/domain"
)

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	push := newRecordingPusher()
	matcher := NewMatcher(st, push, time.Hour)

	// One overdue recruitment, one overdue room (via an expired match), one
	// fresh recruitment that must survive.
	overdue := seedRecruitment(t, st, uuid.New(), "valorant", "jp")
	overdue.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, st.CreateRecruitment(ctx, overdue))

	fresh := seedRecruitment(t, st, uuid.New(), "apex", "na")

	matched := seedRecruitment(t, st, uuid.New(), "lol", "eu")
	room, err := matcher.AttemptMatch(ctx, matched.ID, uuid.New())
	require.NoError(t, err)

	// Backdate the room and seed an old message.
	n, err := st.ExpireRooms(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.NoError(t, st.InsertMessage(ctx, &domain.Message{
		ID:        uuid.New(),
		RoomID:    room.ID,
		UserID:    uuid.New(),
		Content:   "old",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))

	sweeper := NewSweeper(st, time.Minute, 24*time.Hour)
	sweeper.Sweep(ctx)

	got, err := st.GetRecruitment(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentExpired, got.Status)

	got, err = st.GetRecruitment(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentOpen, got.Status)

	msgs, err := st.RoomMessages(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Second pass is a no-op for already-expired entities.
	sweeper.Sweep(ctx)
	n, err = st.ExpireRecruitments(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	n, err = st.ExpireRooms(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestSweeperExpiredRoomBlocksNothing(t *testing.T) {
	// A user whose room expired can match again.
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	owner := uuid.New()
	joiner := uuid.New()
	rec := seedRecruitment(t, st, owner, "valorant", "jp")
	_, err := matcher.AttemptMatch(ctx, rec.ID, joiner)
	require.NoError(t, err)

	_, err = st.ExpireRooms(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)

	rec2 := seedRecruitment(t, st, owner, "apex", "na")
	_, err = matcher.AttemptMatch(ctx, rec2.ID, joiner)
	assert.NoError(t, err)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	st := store.NewMemory()
	sweeper := NewSweeper(st, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
