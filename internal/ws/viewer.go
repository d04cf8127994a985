package ws

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
	"github.com/DoyleJ11/live-scoring-backend/internal/hub"
	pub "github.com/DoyleJ11/live-scoring-backend/pkg/types"
	"github.com/gin-contrib/sse"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View streams a session to a spectator: session_info first, then one event
// per state change until the session closes or the client goes away.
func (s *Server) View() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseSessionID(chi.URLParam(r, "id"))
		if !ok {
			badRequest(w, "invalid session id")
			return
		}
		att, err := s.hub.AttachViewer(id)
		if err != nil {
			badRequest(w, "invalid session id")
			return
		}
		defer att.Events.Close()

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		log := s.log.With(
			zap.String("role", "viewer"),
			zap.String("conn", uuid.NewString()),
			zap.Uint32("session", id),
		)

		h := w.Header()
		h.Set("Content-Type", sse.ContentType)
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := writeEvent(w, sessionInfoEvent(att.Snapshot)); err != nil {
			log.Debug("send session info", zap.Error(err))
			return
		}
		flusher.Flush()
		log.Info("viewer connected")

		keepAlive := time.NewTicker(s.cfg.KeepAliveInterval)
		defer keepAlive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				log.Info("viewer disconnected")
				return
			case ev, ok := <-att.Events.C():
				if !ok {
					log.Info("viewer stream ended", zap.Error(errSessionClosed))
					return
				}
				out, ok := viewerEvent(ev)
				if !ok {
					continue
				}
				if err := writeEvent(w, out); err != nil {
					log.Debug("send event", zap.Error(err))
					return
				}
			case <-keepAlive.C:
				if _, err := io.WriteString(w, ":keep-alive\n\n"); err != nil {
					log.Debug("send keep-alive", zap.Error(err))
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev pub.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	return sse.Encode(w, sse.Event{Data: string(payload)})
}

func sessionInfoEvent(snap hub.Snapshot) pub.Event {
	return pub.Event{
		Type: pub.EventSessionInfo,
		Content: pub.SessionInfo{
			State: publicState(snap.State),
			Data:  publicGameData(snap.Data),
		},
	}
}

func viewerEvent(ev engine.Event) (pub.Event, bool) {
	switch ev.Type {
	case engine.EvtScored:
		return pub.Event{Type: pub.EventScore, Content: pub.Score{
			Team:    ev.Team.String(),
			ScoreID: ev.Index,
			Undo:    ev.Undo,
		}}, true
	case engine.EvtGameStarted:
		return pub.Event{Type: pub.EventGameStart, Content: pub.GameStart{TimeStarted: ev.TimeStarted}}, true
	case engine.EvtGameEnded:
		return pub.Event{Type: pub.EventGameEnd}, true
	case engine.EvtGamePaused:
		return pub.Event{Type: pub.EventGamePause}, true
	case engine.EvtGameUnpaused:
		return pub.Event{Type: pub.EventGameUnpause, Content: pub.GameUnpause{PausedTime: ev.PausedTime}}, true
	case engine.EvtScoreRevealed:
		return pub.Event{Type: pub.EventRevealScore}, true
	default:
		return pub.Event{}, false
	}
}

func publicGameData(d engine.GameData) pub.GameData {
	points := make([]pub.ScorePoint, len(d.ScorePoints))
	for i, p := range d.ScorePoints {
		points[i] = pub.ScorePoint{Name: p.Name, Category: p.Category, Points: p.Points}
	}
	return pub.GameData{Duration: d.Duration, ScorePoints: points}
}

func publicState(s engine.State) pub.State {
	return pub.State{
		BlueScored:  publicScored(s.BlueScored),
		RedScored:   publicScored(s.RedScored),
		TimeStarted: s.TimeStarted,
		TimePaused:  s.TimePaused,
		Paused:      s.Paused,
		Ended:       s.Ended,
	}
}

func publicScored(m map[uint8]engine.ScoredRecord) map[uint8]pub.ScoredRecord {
	out := make(map[uint8]pub.ScoredRecord, len(m))
	for k, v := range m {
		out[k] = pub.ScoredRecord{Scored: v.Scored, Undo: v.Undo}
	}
	return out
}
