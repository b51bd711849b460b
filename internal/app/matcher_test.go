package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aona/duolink/internal/adapters/store"
	"github.com/aona/duolink/internal/domain"
)

func seedRecruitment(t *testing.T, st *store.Memory, owner uuid.UUID, game, region string) *domain.Recruitment {
	t.Helper()
	now := time.Now().UTC()
	rec := &domain.Recruitment{
		ID:        uuid.New(),
		UserID:    owner,
		Game:      game,
		Region:    region,
		StartTime: now,
		Status:    domain.RecruitmentOpen,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, st.CreateRecruitment(context.Background(), rec))
	return rec
}

func TestAttemptMatchCreatesRoomExactlyOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	push := newRecordingPusher()
	matcher := NewMatcher(st, push, 24*time.Hour)

	owner := uuid.New()
	joiner := uuid.New()
	third := uuid.New()
	rec := seedRecruitment(t, st, owner, "valorant", "jp")

	room, err := matcher.AttemptMatch(ctx, rec.ID, joiner)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, rec.ID, room.RecruitmentID)
	assert.Equal(t, domain.RoomActive, room.Status)

	members, err := st.RoomMembers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	got, err := st.GetRecruitment(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentMatched, got.Status)

	// A later claimant sees the recruitment gone.
	_, err = matcher.AttemptMatch(ctx, rec.ID, third)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	assert.Equal(t, []string{"match_created"}, push.userEventTypes(owner))
	assert.Equal(t, []string{"match_created"}, push.userEventTypes(joiner))
	assert.Equal(t, "matched", push.lastLobbyAction())
}

func TestAttemptMatchOwnerRoleCarriesOver(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	owner := uuid.New()
	rec := seedRecruitment(t, st, owner, "apex", "na")
	rec.DesiredRole = "support"
	require.NoError(t, st.CreateRecruitment(ctx, rec))

	room, err := matcher.AttemptMatch(ctx, rec.ID, uuid.New())
	require.NoError(t, err)

	members, err := st.RoomMembers(ctx, room.ID)
	require.NoError(t, err)
	roles := map[uuid.UUID]string{}
	for _, m := range members {
		roles[m.UserID] = m.Role
		assert.False(t, m.ReadyToClose)
	}
	assert.Equal(t, "support", roles[owner])
}

func TestAttemptMatchRejectsSelfJoin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	owner := uuid.New()
	rec := seedRecruitment(t, st, owner, "lol", "eu")

	_, err := matcher.AttemptMatch(ctx, rec.ID, owner)
	assert.ErrorIs(t, err, domain.ErrSelfJoin)

	// The rejected attempt must not consume the recruitment.
	got, err := st.GetRecruitment(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentOpen, got.Status)
}

func TestAttemptMatchAvailabilityCheckedBeforeSelfJoin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	owner := uuid.New()
	rec := seedRecruitment(t, st, owner, "lol", "eu")

	cancelled, err := st.CancelRecruitment(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, cancelled)

	// The owner joining their own dead recruitment learns it is gone, not
	// that the join was a self-join.
	_, err = matcher.AttemptMatch(ctx, rec.ID, owner)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestAttemptMatchRejectsBlockedEitherDirection(t *testing.T) {
	ctx := context.Background()

	for name, swap := range map[string]bool{"owner blocks joiner": false, "joiner blocks owner": true} {
		t.Run(name, func(t *testing.T) {
			st := store.NewMemory()
			matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

			owner := uuid.New()
			joiner := uuid.New()
			rec := seedRecruitment(t, st, owner, "valorant", "jp")

			blocker, blocked := owner, joiner
			if swap {
				blocker, blocked = joiner, owner
			}
			require.NoError(t, st.InsertBlock(ctx, &domain.Block{
				ID: uuid.New(), BlockerID: blocker, BlockedID: blocked, CreatedAt: time.Now(),
			}))

			_, err := matcher.AttemptMatch(ctx, rec.ID, joiner)
			assert.ErrorIs(t, err, domain.ErrBlocked)

			got, err := st.GetRecruitment(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RecruitmentOpen, got.Status)
		})
	}
}

func TestAttemptMatchRejectsBusyJoiner(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	recAB := seedRecruitment(t, st, a, "valorant", "jp")
	_, err := matcher.AttemptMatch(ctx, recAB.ID, b)
	require.NoError(t, err)

	recC := seedRecruitment(t, st, c, "valorant", "jp")
	_, err = matcher.AttemptMatch(ctx, recC.ID, b)
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestAttemptMatchRejectsBusyOwner(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	rec1 := seedRecruitment(t, st, a, "valorant", "jp")
	rec2 := seedRecruitment(t, st, a, "apex", "na")

	_, err := matcher.AttemptMatch(ctx, rec1.ID, b)
	require.NoError(t, err)

	_, err = matcher.AttemptMatch(ctx, rec2.ID, c)
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestAttemptMatchUnknownRecruitment(t *testing.T) {
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	_, err := matcher.AttemptMatch(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttemptMatchExpiredRecruitmentUnavailable(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	rec := seedRecruitment(t, st, uuid.New(), "valorant", "jp")
	rec.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, st.CreateRecruitment(ctx, rec))

	_, err := matcher.AttemptMatch(ctx, rec.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestAttemptMatchConcurrentClaimsExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	matcher := NewMatcher(st, newRecordingPusher(), time.Hour)

	rec := seedRecruitment(t, st, uuid.New(), "valorant", "jp")

	const n = 20
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = matcher.AttemptMatch(ctx, rec.ID, uuid.New())
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, domain.ErrUnavailable)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)

	got, err := st.GetRecruitment(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecruitmentMatched, got.Status)
}
