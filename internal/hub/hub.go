package hub

import (
	"errors"
	"sync"

	"github.com/DoyleJ11/live-scoring-backend/internal/broadcast"
	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
	"github.com/DoyleJ11/live-scoring-backend/internal/types"
)

var ErrSessionNotFound = errors.New("session not found")

// DefaultChannelCapacity is the per-subscriber backlog of each role channel.
const DefaultChannelCapacity = 10

type session struct {
	data   engine.GameData
	state  engine.State
	host   *broadcast.Broadcaster[types.HostCommand]
	user   *broadcast.Broadcaster[types.UserNotice]
	viewer *broadcast.Broadcaster[types.ViewerMessage]
}

// Handle is what a connection holds on to between registry calls: the
// immutable game data and the role channels. State is only reachable
// through the Hub, under its lock.
type Handle struct {
	ID     uint32
	Data   engine.GameData
	Host   *broadcast.Broadcaster[types.HostCommand]
	User   *broadcast.Broadcaster[types.UserNotice]
	Viewer *broadcast.Broadcaster[types.ViewerMessage]
}

type Snapshot struct {
	Data  engine.GameData
	State engine.State
}

type UserAttachment struct {
	Handle
	Started bool
	Notices *broadcast.Subscription[types.UserNotice]
}

type ViewerAttachment struct {
	Handle
	Snapshot Snapshot
	Events   *broadcast.Subscription[types.ViewerMessage]
}

// Hub is the registry of live sessions. One mutex covers the whole map and
// is only ever held for a single operation; nothing in here blocks on a
// socket or a channel.
type Hub struct {
	mu       sync.Mutex
	sessions map[uint32]*session
	capacity int
}

func NewHub(channelCapacity int) *Hub {
	if channelCapacity < 1 {
		channelCapacity = DefaultChannelCapacity
	}
	return &Hub{
		sessions: make(map[uint32]*session),
		capacity: channelCapacity,
	}
}

// CreateSession registers id with data. If id is already live the existing
// session wins and created is false.
func (h *Hub) CreateSession(id uint32, data engine.GameData) (handle Handle, created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s := h.sessions[id]; s != nil {
		return s.handle(id), false
	}
	s := &session{
		data:   data.Clone(),
		state:  engine.NewState(),
		host:   broadcast.New[types.HostCommand](h.capacity),
		user:   broadcast.New[types.UserNotice](h.capacity),
		viewer: broadcast.New[types.ViewerMessage](h.capacity),
	}
	h.sessions[id] = s
	return s.handle(id), true
}

func (h *Hub) Get(id uint32) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[id]
	if s == nil {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

// Read runs fn against the live session under the registry lock. fn must not
// block or retain its arguments.
func (h *Hub) Read(id uint32, fn func(data engine.GameData, state engine.State) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[id]
	if s == nil {
		return ErrSessionNotFound
	}
	return fn(s.data, s.state)
}

// Update is Read with a mutable state.
func (h *Hub) Update(id uint32, fn func(data engine.GameData, state *engine.State) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[id]
	if s == nil {
		return ErrSessionNotFound
	}
	return fn(s.data, &s.state)
}

// Apply runs one state transition for session id.
func (h *Hub) Apply(id uint32, cmd engine.Command) (engine.Event, error) {
	var ev engine.Event
	err := h.Update(id, func(data engine.GameData, state *engine.State) error {
		var err error
		ev, err = engine.Apply(data, state, cmd)
		return err
	})
	return ev, err
}

// AttachUser subscribes a team client in the same critical section that reads
// the started flag, so no lifecycle notice can fall between the two.
func (h *Hub) AttachUser(id uint32) (UserAttachment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[id]
	if s == nil {
		return UserAttachment{}, ErrSessionNotFound
	}
	return UserAttachment{
		Handle:  s.handle(id),
		Started: s.state.Started(),
		Notices: s.user.Subscribe(),
	}, nil
}

func (h *Hub) AttachViewer(id uint32) (ViewerAttachment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[id]
	if s == nil {
		return ViewerAttachment{}, ErrSessionNotFound
	}
	return ViewerAttachment{
		Handle:   s.handle(id),
		Snapshot: s.snapshot(),
		Events:   s.viewer.Subscribe(),
	}, nil
}

// Close removes the session. Team clients get a UserClose notice; every role
// channel is then closed so viewers and pending receivers see end of stream.
func (h *Hub) Close(id uint32) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[id]
	if s == nil {
		return Snapshot{}, false
	}
	delete(h.sessions, id)
	s.shutdown()
	return s.snapshot(), true
}

// CloseAll tears down every live session, e.g. on server shutdown.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.sessions)
	for id, s := range h.sessions {
		delete(h.sessions, id)
		s.shutdown()
	}
	return n
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (s *session) handle(id uint32) Handle {
	return Handle{ID: id, Data: s.data, Host: s.host, User: s.user, Viewer: s.viewer}
}

func (s *session) snapshot() Snapshot {
	return Snapshot{Data: s.data.Clone(), State: s.state.Clone()}
}

func (s *session) shutdown() {
	s.user.Publish(types.UserNotice{Type: types.UserClose})
	s.user.Close()
	s.viewer.Close()
	s.host.Close()
}
