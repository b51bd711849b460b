package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/core"
)

// Registry tracks every live connection per user plus the lobby set of
// connections interested in public recruitment updates. Constructed once in
// main and passed explicitly; it knows nothing about matching or rooms.
type Registry struct {
	mu    sync.Mutex
	users map[uuid.UUID]map[core.Conn]struct{}
	lobby map[core.Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[uuid.UUID]map[core.Conn]struct{}),
		lobby: make(map[core.Conn]struct{}),
	}
}

// Connect registers conn under userID; every connection is a lobby subscriber.
func (r *Registry) Connect(userID uuid.UUID, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		set = make(map[core.Conn]struct{})
		r.users[userID] = set
	}
	set[conn] = struct{}{}
	r.lobby[conn] = struct{}{}
	log.Info().Str("module", "app.registry").Str("user", userID.String()).Int("conns", len(set)).Msg("connected")
}

func (r *Registry) Disconnect(userID uuid.UUID, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.users[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
	delete(r.lobby, conn)
	log.Info().Str("module", "app.registry").Str("user", userID.String()).Msg("disconnected")
}

// SendToUser delivers f to every connection of userID. A connection whose
// send fails is dead: it is dropped from both sets and delivery continues
// with the rest. Zero connections is a silent no-op.
//
// TrySend is a non-blocking enqueue, so holding the lock across it is safe.
func (r *Registry) SendToUser(userID uuid.UUID, f core.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendToUserLocked(userID, f)
}

func (r *Registry) sendToUserLocked(userID uuid.UUID, f core.Frame) {
	set, ok := r.users[userID]
	if !ok {
		return
	}
	for conn := range set {
		if err := conn.TrySend(f); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Str("user", userID.String()).Msg("dropping dead connection")
			delete(set, conn)
			delete(r.lobby, conn)
			conn.Close()
		}
	}
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// SendToUsers delivers independently per user; one user's failure never
// blocks another's delivery.
func (r *Registry) SendToUsers(userIDs []uuid.UUID, f core.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		r.sendToUserLocked(id, f)
	}
}

func (r *Registry) BroadcastToLobby(f core.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.lobby {
		if err := conn.TrySend(f); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Msg("dropping dead lobby connection")
			delete(r.lobby, conn)
			r.dropFromUsersLocked(conn)
			conn.Close()
		}
	}
}

func (r *Registry) dropFromUsersLocked(conn core.Conn) {
	for id, set := range r.users {
		if _, ok := set[conn]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(r.users, id)
			}
			return
		}
	}
}

// Conns reports how many live connections userID currently holds.
func (r *Registry) Conns(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users[userID])
}
