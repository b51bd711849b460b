package app

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ticketEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// TicketStore issues short-lived, single-use tokens binding a connection
// attempt to an already-authenticated user. Entries live only in memory.
type TicketStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]ticketEntry
	now     func() time.Time
}

func NewTicketStore(ttl time.Duration) *TicketStore {
	return &TicketStore{
		ttl:     ttl,
		entries: make(map[string]ticketEntry),
		now:     time.Now,
	}
}

// Issue returns a fresh opaque token for userID, lazily sweeping expired
// entries on the way.
func (s *TicketStore) Issue(userID uuid.UUID) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if e.expiresAt.Before(now) {
			delete(s.entries, k)
		}
	}
	s.entries[token] = ticketEntry{userID: userID, expiresAt: now.Add(s.ttl)}
	return token
}

// Consume pops the ticket. Unknown or expired tickets miss; a ticket is
// consumed at most once.
func (s *TicketStore) Consume(token string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return uuid.Nil, false
	}
	delete(s.entries, token)
	if s.now().After(e.expiresAt) {
		return uuid.Nil, false
	}
	return e.userID, true
}
