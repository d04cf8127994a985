package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
	"github.com/DoyleJ11/live-scoring-backend/internal/hub"
	"github.com/DoyleJ11/live-scoring-backend/internal/protocol"
	"github.com/DoyleJ11/live-scoring-backend/internal/types"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Join attaches a team client to an existing session. Bad ids and teams are
// rejected before the upgrade.
func (s *Server) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseSessionID(chi.URLParam(r, "id"))
		if !ok {
			badRequest(w, "invalid session id")
			return
		}
		team, ok := engine.ParseTeam(chi.URLParam(r, "team"))
		if !ok {
			badRequest(w, "invalid team")
			return
		}
		att, err := s.hub.AttachUser(id)
		if err != nil {
			badRequest(w, "invalid session id")
			return
		}
		defer att.Notices.Close()

		log := s.log.With(
			zap.String("role", "user"),
			zap.String("conn", uuid.NewString()),
			zap.Uint32("session", id),
			zap.Stringer("team", team),
		)

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("upgrade failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		if err := s.write(ctx, conn, protocol.UserSessionInfo{Started: att.Started, Data: att.Data}); err != nil {
			log.Debug("send session info", zap.Error(err))
			return
		}
		log.Info("user connected", zap.Bool("started", att.Started))

		err = race(ctx,
			half{name: "egress", run: func(ctx context.Context) error {
				return s.userEgress(ctx, conn, att)
			}},
			half{name: "ingress", run: func(ctx context.Context) error {
				return s.userIngress(ctx, conn, att, team)
			}},
		)
		logDisconnect(log, "user disconnected", err)
	}
}

func (s *Server) userEgress(ctx context.Context, conn *websocket.Conn, att hub.UserAttachment) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-att.Notices.C():
			if !ok || n.Type == types.UserClose {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return errSessionClosed
			}
			var p protocol.UserClientbound
			switch n.Type {
			case types.UserGameStart:
				p = protocol.UserStartGame{}
			case types.UserGameEnd:
				p = protocol.UserEndGame{}
			default:
				continue
			}
			if err := s.write(ctx, conn, p); err != nil {
				return err
			}
		}
	}
}

// userIngress validates score requests against the live state and forwards
// them to the host. The first invalid request ends the connection.
func (s *Server) userIngress(ctx context.Context, conn *websocket.Conn, att hub.UserAttachment, team engine.Team) error {
	for {
		b, err := readBinary(ctx, conn)
		if err != nil {
			return err
		}
		p, err := protocol.DecodeUserServerbound(b)
		if err != nil {
			return violation("decode: %w", err)
		}
		score, ok := p.(protocol.UserScore)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedPacket, p)
		}
		err = s.hub.Read(att.ID, func(data engine.GameData, state engine.State) error {
			return engine.CanScore(data, state, score.Index)
		})
		if err != nil {
			return violation("score %d rejected: %w", score.Index, err)
		}
		att.Host.Publish(types.HostCommand{Team: team, Index: score.Index, Undo: score.Undo})
	}
}
