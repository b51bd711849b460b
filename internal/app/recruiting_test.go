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

func newRecruiting(st *store.Memory, push *recordingPusher) *Recruiting {
	catalog := NewStaticCatalog([]string{"valorant", "apex"}, []string{"jp", "na"})
	return NewRecruiting(st, push, PassThroughModerator{}, catalog, time.Hour)
}

func validInput() CreateRecruitmentInput {
	return CreateRecruitmentInput{
		Game:      "valorant",
		Region:    "jp",
		StartTime: time.Now().Add(30 * time.Minute),
	}
}

func TestCreateRecruitmentBroadcasts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	push := newRecordingPusher()
	svc := newRecruiting(st, push)

	rec, err := svc.Create(ctx, uuid.New(), validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentOpen, rec.Status)
	assert.True(t, rec.ExpiresAt.After(time.Now()))

	assert.Equal(t, []string{"recruitment_update"}, push.lobbyEventTypes())
	assert.Equal(t, "created", push.lastLobbyAction())

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, rec.ID, listed[0].ID)
}

func TestCreateRecruitmentRejectsInvalidCatalogEntries(t *testing.T) {
	ctx := context.Background()
	svc := newRecruiting(store.NewMemory(), newRecordingPusher())

	in := validInput()
	in.Game = "pinball"
	_, err := svc.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidGame)

	in = validInput()
	in.Region = "moon"
	_, err = svc.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidRegion)
}

func TestCreateRecruitmentOnePerUser(t *testing.T) {
	ctx := context.Background()
	svc := newRecruiting(store.NewMemory(), newRecordingPusher())
	userID := uuid.New()

	_, err := svc.Create(ctx, userID, validInput())
	require.NoError(t, err)

	_, err = svc.Create(ctx, userID, validInput())
	assert.ErrorIs(t, err, domain.ErrOpenRecruitmentExists)
}

func TestCreateRecruitmentRejectsUserWithActiveRoom(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	push := newRecordingPusher()
	svc := newRecruiting(st, push)
	matcher := NewMatcher(st, push, time.Hour)

	owner := uuid.New()
	joiner := uuid.New()
	rec := seedRecruitment(t, st, owner, "valorant", "jp")
	_, err := matcher.AttemptMatch(ctx, rec.ID, joiner)
	require.NoError(t, err)

	_, err = svc.Create(ctx, joiner, validInput())
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestCreateRecruitmentFingerprintDedup(t *testing.T) {
	ctx := context.Background()
	svc := newRecruiting(store.NewMemory(), newRecordingPusher())

	in := validInput()
	in.IPHash = HashAddr("203.0.113.9")
	_, err := svc.Create(ctx, uuid.New(), in)
	require.NoError(t, err)

	// Different user, same address and game/region, right away.
	_, err = svc.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, domain.ErrDuplicateRecent)

	// Different game from the same address is fine.
	in.Game = "apex"
	_, err = svc.Create(ctx, uuid.New(), in)
	assert.NoError(t, err)
}

func TestCancelRecruitment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	push := newRecordingPusher()
	svc := newRecruiting(st, push)
	userID := uuid.New()

	rec, err := svc.Create(ctx, userID, validInput())
	require.NoError(t, err)

	err = svc.Cancel(ctx, rec.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	require.NoError(t, svc.Cancel(ctx, rec.ID, userID))
	assert.Equal(t, "cancelled", push.lastLobbyAction())

	got, err := st.GetRecruitment(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentCancelled, got.Status)

	// No resurrection from a terminal state.
	err = svc.Cancel(ctx, rec.ID, userID)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestHashAddr(t *testing.T) {
	assert.Empty(t, HashAddr(""))
	assert.Len(t, HashAddr("203.0.113.9"), 64)
	assert.Equal(t, HashAddr("203.0.113.9"), HashAddr("203.0.113.9"))
	assert.NotEqual(t, HashAddr("203.0.113.9"), HashAddr("203.0.113.10"))
}
