// Package ws serves the three session roles: the host and team clients over
// binary WebSockets and viewers over Server-Sent Events.
package ws

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"

	"github.com/DoyleJ11/live-scoring-backend/internal/config"
	"github.com/DoyleJ11/live-scoring-backend/internal/hub"
	"github.com/DoyleJ11/live-scoring-backend/internal/protocol"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// A host GameData of 256 entries with long names does not fit in the
// library's 32KiB default.
const maxMessageSize = 1 << 20

var (
	errSessionClosed = errors.New("session closed")
	errStreamEnded   = errors.New("stream ended")

	// errViolation marks the reasons that are the peer's fault.
	errViolation        = errors.New("protocol violation")
	errNotBinary        = fmt.Errorf("%w: expected a binary message", errViolation)
	errUnexpectedPacket = fmt.Errorf("%w: unexpected packet", errViolation)
)

type Server struct {
	hub   *hub.Hub
	games protocol.GameLookup
	cfg   config.Config
	log   *zap.Logger
	newID func() uint32
}

type Option func(*Server)

// WithIDSource replaces the random session id generator.
func WithIDSource(fn func() uint32) Option {
	return func(s *Server) { s.newID = fn }
}

func NewServer(h *hub.Hub, games protocol.GameLookup, cfg config.Config, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		hub:   h,
		games: games,
		cfg:   cfg,
		log:   log,
		newID: rand.Uint32,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount registers the role endpoints on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/ws/host", s.Host())
	r.Get("/ws/join/{id}/{team}", s.Join())
	r.Get("/sse/view/{id}", s.View())
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, p protocol.Packet) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, protocol.Marshal(p)); err != nil {
		return fmt.Errorf("write packet %d: %w", p.ID(), err)
	}
	return nil
}

func readBinary(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	typ, b, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if typ != websocket.MessageBinary {
		return nil, errNotBinary
	}
	return b, nil
}

func parseSessionID(raw string) (uint32, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// half is one direction of a connection.
type half struct {
	name string
	run  func(ctx context.Context) error
}

// race runs the halves together and returns once all of them have stopped.
// The first half to return cancels the rest, and its reason is the one
// reported.
func race(ctx context.Context, halves ...half) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once  sync.Once
		first error
		g     errgroup.Group
	)
	for _, h := range halves {
		h := h
		g.Go(func() error {
			err := h.run(ctx)
			if err == nil {
				err = errStreamEnded
			}
			once.Do(func() { first = fmt.Errorf("%s: %w", h.name, err) })
			cancel()
			return nil
		})
	}
	_ = g.Wait()
	return first
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %w", errViolation, fmt.Errorf(format, args...))
}

// logDisconnect reports why a connection ended. Peers going away is routine;
// peers breaking the protocol is not.
func logDisconnect(log *zap.Logger, msg string, err error) {
	if errors.Is(err, errViolation) {
		log.Warn(msg, zap.Error(err))
		return
	}
	log.Info(msg, zap.Error(err))
}

func badRequest(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusBadRequest)
}
