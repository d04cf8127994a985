package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DoyleJ11/live-scoring-backend/internal/broadcast"
	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
	"github.com/DoyleJ11/live-scoring-backend/internal/hub"
	"github.com/DoyleJ11/live-scoring-backend/internal/protocol"
	"github.com/DoyleJ11/live-scoring-backend/internal/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Host owns a session for the lifetime of its socket. The first message must
// be a SelectGame; the session is torn down when either direction stops.
func (s *Server) Host() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With(zap.String("role", "host"), zap.String("conn", uuid.NewString()))

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("upgrade failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(maxMessageSize)

		ctx := r.Context()
		data, err := s.hostHandshake(ctx, conn)
		if err != nil {
			log.Warn("host handshake failed", zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, "expected SelectGame")
			return
		}

		id := s.newID()
		handle, created := s.hub.CreateSession(id, data)
		log = log.With(zap.Uint32("session", id))
		if !created {
			log.Warn("session id already live, attaching to existing session")
		}

		commands := handle.Host.Subscribe()
		defer commands.Close()
		defer func() {
			if _, ok := s.hub.Close(id); ok {
				log.Info("session closed")
			}
		}()

		if err := s.write(ctx, conn, protocol.HostSessionInfo{SessionID: id, Data: handle.Data}); err != nil {
			log.Debug("send session info", zap.Error(err))
			return
		}
		log.Info("session created", zap.Int("score_points", len(handle.Data.ScorePoints)))

		err = race(ctx,
			half{name: "egress", run: func(ctx context.Context) error {
				return s.hostEgress(ctx, conn, handle, commands, log)
			}},
			half{name: "ingress", run: func(ctx context.Context) error {
				return s.hostIngress(ctx, conn, handle, log)
			}},
		)
		logDisconnect(log, "host disconnected", err)
	}
}

func (s *Server) hostHandshake(ctx context.Context, conn *websocket.Conn) (engine.GameData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()

	b, err := readBinary(ctx, conn)
	if err != nil {
		return engine.GameData{}, err
	}
	p, err := protocol.DecodeHostServerbound(b, s.games)
	if err != nil {
		return engine.GameData{}, violation("decode handshake: %w", err)
	}
	sel, ok := p.(protocol.SelectGame)
	if !ok {
		return engine.GameData{}, fmt.Errorf("%w: %T", errUnexpectedPacket, p)
	}
	return sel.Ref.Resolve(s.games)
}

// hostEgress applies score requests forwarded by team clients and echoes them
// back to the host.
func (s *Server) hostEgress(ctx context.Context, conn *websocket.Conn, handle hub.Handle, commands *broadcast.Subscription[types.HostCommand], log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands.C():
			if !ok {
				return errSessionClosed
			}
			ev, err := s.hub.Apply(handle.ID, engine.Command{
				Type:  engine.CmdScore,
				Team:  cmd.Team,
				Index: cmd.Index,
				Undo:  cmd.Undo,
			})
			if err != nil {
				return fmt.Errorf("apply score: %w", err)
			}
			handle.Viewer.Publish(ev)
			log.Debug("scored",
				zap.Stringer("team", cmd.Team),
				zap.Uint8("index", cmd.Index),
				zap.Bool("undo", cmd.Undo),
			)
			if err := s.write(ctx, conn, protocol.HostScore{Team: cmd.Team, Index: cmd.Index, Undo: cmd.Undo}); err != nil {
				return err
			}
		}
	}
}

// hostIngress turns host packets into lifecycle transitions. Any rejected
// transition or malformed packet ends the connection.
func (s *Server) hostIngress(ctx context.Context, conn *websocket.Conn, handle hub.Handle, log *zap.Logger) error {
	for {
		b, err := readBinary(ctx, conn)
		if err != nil {
			return err
		}
		p, err := protocol.DecodeHostServerbound(b, s.games)
		if err != nil {
			return violation("decode: %w", err)
		}
		cmd, ok := hostCommand(p)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedPacket, p)
		}
		ev, err := s.hub.Apply(handle.ID, cmd)
		if err != nil {
			return violation("%s: %w", cmd.Type, err)
		}
		log.Info("lifecycle", zap.String("event", string(ev.Type)))

		handle.Viewer.Publish(ev)
		switch ev.Type {
		case engine.EvtGameStarted:
			handle.User.Publish(types.UserNotice{Type: types.UserGameStart})
		case engine.EvtGameEnded:
			handle.User.Publish(types.UserNotice{Type: types.UserGameEnd})
		}
	}
}

func hostCommand(p protocol.HostServerbound) (engine.Command, bool) {
	switch p := p.(type) {
	case protocol.StartGame:
		return engine.Command{Type: engine.CmdStartGame, TimeStarted: p.TimeStarted}, true
	case protocol.EndGame:
		return engine.Command{Type: engine.CmdEndGame}, true
	case protocol.PauseGame:
		return engine.Command{Type: engine.CmdPauseGame}, true
	case protocol.UnpauseGame:
		return engine.Command{Type: engine.CmdUnpauseGame, Elapsed: p.Elapsed}, true
	case protocol.RevealScore:
		return engine.Command{Type: engine.CmdRevealScore}, true
	default:
		// SelectGame is only valid as the handshake.
		return engine.Command{}, false
	}
}
