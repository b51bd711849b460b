package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/aona/duolink/internal/core"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	dead   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return errors.New("connection reset")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type recordedEvent struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// recordingPusher captures pushed events per user and for the lobby.
type recordingPusher struct {
	mu     sync.Mutex
	direct map[uuid.UUID][]recordedEvent
	lobby  []recordedEvent
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{direct: make(map[uuid.UUID][]recordedEvent)}
}

func decodeEvent(t *testing.T, f core.Frame) recordedEvent {
	t.Helper()
	var ev recordedEvent
	if err := json.Unmarshal(f, &ev); err != nil {
		t.Fatalf("bad event frame: %v", err)
	}
	return ev
}

func (p *recordingPusher) SendToUser(userID uuid.UUID, f core.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ev recordedEvent
	_ = json.Unmarshal(f, &ev)
	p.direct[userID] = append(p.direct[userID], ev)
}

func (p *recordingPusher) SendToUsers(userIDs []uuid.UUID, f core.Frame) {
	for _, id := range userIDs {
		p.SendToUser(id, f)
	}
}

func (p *recordingPusher) BroadcastToLobby(f core.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ev recordedEvent
	_ = json.Unmarshal(f, &ev)
	p.lobby = append(p.lobby, ev)
}

func (p *recordingPusher) userEventTypes(userID uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.direct[userID] {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPusher) lobbyEventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.lobby {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPusher) lastLobbyAction() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lobby) == 0 {
		return ""
	}
	return p.lobby[len(p.lobby)-1].Data["action"]
}
