package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aona/duolink/internal/core"
	"github.com/aona/duolink/internal/domain"
)

// Memory implements core.Store on plain maps under one mutex. It backs the
// test suite and local runs without Postgres. Match and Close hold the lock
// for their whole callback and stage writes until the callback succeeds,
// which preserves the at-most-one-winner claim without row locking.
type Memory struct {
	mu           sync.Mutex
	recruitments map[uuid.UUID]*domain.Recruitment
	rooms        map[uuid.UUID]*domain.Room
	members      map[uuid.UUID][]*domain.RoomMember
	messages     []*domain.Message
	feedbacks    map[uuid.UUID]map[uuid.UUID]*domain.Feedback
	blocks       map[[2]uuid.UUID]*domain.Block
}

func NewMemory() *Memory {
	return &Memory{
		recruitments: make(map[uuid.UUID]*domain.Recruitment),
		rooms:        make(map[uuid.UUID]*domain.Room),
		members:      make(map[uuid.UUID][]*domain.RoomMember),
		feedbacks:    make(map[uuid.UUID]map[uuid.UUID]*domain.Feedback),
		blocks:       make(map[[2]uuid.UUID]*domain.Block),
	}
}

var _ core.Store = (*Memory)(nil)

func (m *Memory) ListOpenRecruitments(ctx context.Context, now time.Time) ([]domain.Recruitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Recruitment
	for _, r := range m.recruitments {
		if r.Status == domain.RecruitmentOpen && r.ExpiresAt.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetRecruitment(ctx context.Context, id uuid.UUID) (*domain.Recruitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recruitments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) CreateRecruitment(ctx context.Context, r *domain.Recruitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.recruitments[r.ID] = &cp
	return nil
}

func (m *Memory) CancelRecruitment(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recruitments[id]
	if !ok || r.Status != domain.RecruitmentOpen {
		return false, nil
	}
	r.Status = domain.RecruitmentCancelled
	return true, nil
}

func (m *Memory) HasOpenRecruitment(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recruitments {
		if r.UserID == userID && r.Status == domain.RecruitmentOpen {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) HasRecentDuplicate(ctx context.Context, ipHash, game, region string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recruitments {
		if r.IPHash == ipHash && r.Game == game && r.Region == region &&
			r.Status == domain.RecruitmentOpen && r.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) HasActiveRoom(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActiveRoomLocked(userID), nil
}

func (m *Memory) hasActiveRoomLocked(userID uuid.UUID) bool {
	for roomID, members := range m.members {
		room := m.rooms[roomID]
		if room == nil || room.Status != domain.RoomActive {
			continue
		}
		for _, mm := range members {
			if mm.UserID == userID {
				return true
			}
		}
	}
	return false
}

type memMatchTx struct {
	store *Memory
	// staged writes, applied only when the callback succeeds
	matched    []uuid.UUID
	newRooms   []*domain.Room
	newMembers []*domain.RoomMember
}

func (t *memMatchTx) ClaimOpenRecruitment(id uuid.UUID) (*domain.Recruitment, error) {
	r, ok := t.store.recruitments[id]
	if !ok || r.Status != domain.RecruitmentOpen || !r.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (t *memMatchTx) BlockedEitherWay(a, b uuid.UUID) (bool, error) {
	_, ab := t.store.blocks[[2]uuid.UUID{a, b}]
	_, ba := t.store.blocks[[2]uuid.UUID{b, a}]
	return ab || ba, nil
}

func (t *memMatchTx) HasActiveRoom(userID uuid.UUID) (bool, error) {
	return t.store.hasActiveRoomLocked(userID), nil
}

func (t *memMatchTx) MarkMatched(id uuid.UUID) error {
	t.matched = append(t.matched, id)
	return nil
}

func (t *memMatchTx) InsertRoom(room *domain.Room) error {
	cp := *room
	t.newRooms = append(t.newRooms, &cp)
	return nil
}

func (t *memMatchTx) InsertRoomMember(mm *domain.RoomMember) error {
	cp := *mm
	t.newMembers = append(t.newMembers, &cp)
	return nil
}

func (m *Memory) Match(ctx context.Context, fn func(core.MatchTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memMatchTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, id := range tx.matched {
		if r, ok := m.recruitments[id]; ok {
			r.Status = domain.RecruitmentMatched
		}
	}
	for _, room := range tx.newRooms {
		m.rooms[room.ID] = room
	}
	for _, mm := range tx.newMembers {
		m.members[mm.RoomID] = append(m.members[mm.RoomID], mm)
	}
	return nil
}

type memCloseTx struct {
	store      *Memory
	readyUsers map[uuid.UUID][]uuid.UUID // roomID -> users flagged ready
	newStatus  map[uuid.UUID]domain.RoomStatus
}

func (t *memCloseTx) LockRoom(id uuid.UUID) (*domain.Room, error) {
	room, ok := t.store.rooms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (t *memCloseTx) Members(roomID uuid.UUID) ([]domain.RoomMember, error) {
	members := t.store.members[roomID]
	out := make([]domain.RoomMember, 0, len(members))
	for _, mm := range members {
		out = append(out, *mm)
	}
	return out, nil
}

func (t *memCloseTx) SetReadyToClose(roomID, userID uuid.UUID) error {
	t.readyUsers[roomID] = append(t.readyUsers[roomID], userID)
	return nil
}

func (t *memCloseTx) SetRoomStatus(roomID uuid.UUID, status domain.RoomStatus) error {
	t.newStatus[roomID] = status
	return nil
}

func (m *Memory) Close(ctx context.Context, fn func(core.CloseTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memCloseTx{
		store:      m,
		readyUsers: make(map[uuid.UUID][]uuid.UUID),
		newStatus:  make(map[uuid.UUID]domain.RoomStatus),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for roomID, users := range tx.readyUsers {
		for _, mm := range m.members[roomID] {
			for _, uid := range users {
				if mm.UserID == uid {
					mm.ReadyToClose = true
				}
			}
		}
	}
	for roomID, status := range tx.newStatus {
		if room, ok := m.rooms[roomID]; ok {
			room.Status = status
		}
	}
	return nil
}

func (m *Memory) GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (m *Memory) RoomMembers(ctx context.Context, roomID uuid.UUID) ([]domain.RoomMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.members[roomID]
	out := make([]domain.RoomMember, 0, len(members))
	for _, mm := range members {
		out = append(out, *mm)
	}
	return out, nil
}

func (m *Memory) InsertMessage(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *Memory) RoomMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertFeedback(ctx context.Context, f *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byFrom, ok := m.feedbacks[f.RoomID]
	if !ok {
		byFrom = make(map[uuid.UUID]*domain.Feedback)
		m.feedbacks[f.RoomID] = byFrom
	}
	if _, dup := byFrom[f.FromUserID]; dup {
		return domain.ErrDuplicateFeedback
	}
	cp := *f
	byFrom[f.FromUserID] = &cp
	return nil
}

func (m *Memory) RoomsAwaitingFeedback(ctx context.Context, userID uuid.UUID, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ended []*domain.Room
	for roomID, members := range m.members {
		room := m.rooms[roomID]
		if room == nil || room.Status == domain.RoomActive {
			continue
		}
		for _, mm := range members {
			if mm.UserID == userID {
				if byFrom := m.feedbacks[roomID]; byFrom == nil || byFrom[userID] == nil {
					ended = append(ended, room)
				}
				break
			}
		}
	}
	sort.Slice(ended, func(i, j int) bool { return ended[i].CreatedAt.After(ended[j].CreatedAt) })
	if len(ended) > limit {
		ended = ended[:limit]
	}
	out := make([]uuid.UUID, 0, len(ended))
	for _, room := range ended {
		out = append(out, room.ID)
	}
	return out, nil
}

func (m *Memory) ListBlocks(ctx context.Context, blockerID uuid.UUID) ([]domain.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Block
	for _, b := range m.blocks {
		if b.BlockerID == blockerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertBlock(ctx context.Context, b *domain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{b.BlockerID, b.BlockedID}
	if _, dup := m.blocks[key]; dup {
		return domain.ErrAlreadyBlocked
	}
	cp := *b
	m.blocks[key] = &cp
	return nil
}

func (m *Memory) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{blockerID, blockedID}
	if _, ok := m.blocks[key]; !ok {
		return false, nil
	}
	delete(m.blocks, key)
	return true, nil
}

func (m *Memory) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	var n int64
	for _, msg := range m.messages {
		if msg.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return n, nil
}

func (m *Memory) ExpireRecruitments(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.recruitments {
		if r.Status == domain.RecruitmentOpen && !r.ExpiresAt.After(now) {
			r.Status = domain.RecruitmentExpired
			n++
		}
	}
	return n, nil
}

func (m *Memory) ExpireRooms(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, room := range m.rooms {
		if room.Status == domain.RoomActive && !room.ExpiresAt.After(now) {
			room.Status = domain.RoomExpired
			n++
		}
	}
	return n, nil
}
