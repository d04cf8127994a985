package ws_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DoyleJ11/live-scoring-backend/internal/catalog"
	"github.com/DoyleJ11/live-scoring-backend/internal/config"
	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
	"github.com/DoyleJ11/live-scoring-backend/internal/hub"
	"github.com/DoyleJ11/live-scoring-backend/internal/protocol"
	"github.com/DoyleJ11/live-scoring-backend/internal/ws"
	pub "github.com/DoyleJ11/live-scoring-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sessionID = 42
	wait      = 2 * time.Second
)

func testData() engine.GameData {
	return engine.GameData{
		Duration: 150,
		ScorePoints: []engine.ScorePoint{
			{Name: "cube", Category: "auto", Points: 3},
			{Name: "park", Category: "endgame", Points: 2},
		},
	}
}

type env struct {
	srv *httptest.Server
	hub *hub.Hub
	ids *atomic.Int32
}

func newEnv(t *testing.T, tweak ...func(*config.Config)) *env {
	t.Helper()
	cfg := config.Config{
		HandshakeTimeout:  200 * time.Millisecond,
		WriteTimeout:      time.Second,
		KeepAliveInterval: time.Hour,
		ChannelCapacity:   hub.DefaultChannelCapacity,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}

	h := hub.NewHub(cfg.ChannelCapacity)
	ids := &atomic.Int32{}
	s := ws.NewServer(h, catalog.Default(), cfg, nil, ws.WithIDSource(func() uint32 {
		ids.Add(1)
		return sessionID
	}))

	r := chi.NewRouter()
	s.Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { h.CloseAll() })
	return &env{srv: srv, hub: h, ids: ids}
}

func (e *env) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(e.srv.URL, "http")+path, nil)
	require.NoError(t, err)
	conn.SetReadLimit(1 << 20)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, p protocol.Packet) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, protocol.Marshal(p)))
}

func recv(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	typ, b, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageBinary, typ)
	return b
}

func recvHost(t *testing.T, conn *websocket.Conn) protocol.HostClientbound {
	t.Helper()
	p, err := protocol.DecodeHostClientbound(recv(t, conn))
	require.NoError(t, err)
	return p
}

func recvUser(t *testing.T, conn *websocket.Conn) protocol.UserClientbound {
	t.Helper()
	p, err := protocol.DecodeUserClientbound(recv(t, conn))
	require.NoError(t, err)
	return p
}

// recvClosed reads until the server ends the connection and returns the
// read error.
func recvClosed(t *testing.T, conn *websocket.Conn) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			require.NotErrorIs(t, err, context.DeadlineExceeded, "connection was not closed")
			return err
		}
	}
}

func (e *env) host(t *testing.T, ref protocol.GameDataRef) *websocket.Conn {
	t.Helper()
	conn := e.dial(t, "/ws/host")
	send(t, conn, protocol.SelectGame{Ref: ref})
	info, ok := recvHost(t, conn).(protocol.HostSessionInfo)
	require.True(t, ok, "first host packet must be session info")
	require.Equal(t, uint32(sessionID), info.SessionID)
	return conn
}

func (e *env) join(t *testing.T, team string) (*websocket.Conn, protocol.UserSessionInfo) {
	t.Helper()
	conn := e.dial(t, fmt.Sprintf("/ws/join/%d/%s", sessionID, team))
	info, ok := recvUser(t, conn).(protocol.UserSessionInfo)
	require.True(t, ok, "first user packet must be session info")
	return conn, info
}

type viewer struct {
	events   chan pub.RawEvent
	comments chan string
}

func (e *env) view(t *testing.T, path string) *viewer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})

	v := &viewer{events: make(chan pub.RawEvent, 64), comments: make(chan string, 64)}
	go func() {
		defer close(v.events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "data:"):
				var ev pub.RawEvent
				if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev); err != nil {
					return
				}
				v.events <- ev
			case strings.HasPrefix(line, ":"):
				select {
				case v.comments <- line:
				default:
				}
			}
		}
	}()
	return v
}

func (v *viewer) next(t *testing.T) pub.RawEvent {
	t.Helper()
	select {
	case ev, ok := <-v.events:
		require.True(t, ok, "viewer stream ended")
		return ev
	case <-time.After(wait):
		t.Fatalf("timed out waiting for viewer event")
		return pub.RawEvent{}
	}
}

func (v *viewer) ended(t *testing.T) {
	t.Helper()
	select {
	case _, ok := <-v.events:
		require.False(t, ok, "expected end of stream")
	case <-time.After(wait):
		t.Fatalf("viewer stream not closed")
	}
}

func decodeContent[T any](t *testing.T, ev pub.RawEvent) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(ev.Content, &out))
	return out
}

func TestSession_EndToEnd(t *testing.T) {
	e := newEnv(t)
	data := testData()

	host := e.host(t, protocol.CustomRef(data))
	require.Equal(t, 1, e.hub.Len())

	v := e.view(t, fmt.Sprintf("/sse/view/%d", sessionID))
	first := v.next(t)
	require.Equal(t, pub.EventSessionInfo, first.Type)
	info := decodeContent[pub.SessionInfo](t, first)
	assert.Nil(t, info.State.TimeStarted)
	assert.Empty(t, info.State.BlueScored)
	assert.Equal(t, uint16(150), info.Data.Duration)
	require.Len(t, info.Data.ScorePoints, 2)
	assert.Equal(t, "cube", info.Data.ScorePoints[0].Name)

	user, joined := e.join(t, "blue")
	assert.False(t, joined.Started)
	assert.Equal(t, data, joined.Data)

	send(t, host, protocol.StartGame{TimeStarted: 1000})
	assert.Equal(t, protocol.UserStartGame{}, recvUser(t, user))

	ev := v.next(t)
	require.Equal(t, pub.EventGameStart, ev.Type)
	assert.Equal(t, uint64(1000), decodeContent[pub.GameStart](t, ev).TimeStarted)

	send(t, user, protocol.UserScore{Index: 0})
	assert.Equal(t, protocol.HostScore{Team: engine.TeamBlue, Index: 0}, recvHost(t, host))

	snap, ok := e.hub.Get(sessionID)
	require.True(t, ok)
	assert.Equal(t, engine.ScoredRecord{Scored: 1}, snap.State.BlueScored[0])
	assert.Equal(t, 3, engine.Points(snap.Data, snap.State, engine.TeamBlue))

	ev = v.next(t)
	require.Equal(t, pub.EventScore, ev.Type)
	assert.Equal(t, pub.Score{Team: "blue", ScoreID: 0}, decodeContent[pub.Score](t, ev))

	send(t, user, protocol.UserScore{Index: 0, Undo: true})
	assert.Equal(t, protocol.HostScore{Team: engine.TeamBlue, Index: 0, Undo: true}, recvHost(t, host))
	ev = v.next(t)
	assert.Equal(t, pub.Score{Team: "blue", ScoreID: 0, Undo: true}, decodeContent[pub.Score](t, ev))

	// A late viewer sees the accumulated state in its first event.
	late := e.view(t, fmt.Sprintf("/sse/view/%d", sessionID))
	lateInfo := decodeContent[pub.SessionInfo](t, late.next(t))
	require.NotNil(t, lateInfo.State.TimeStarted)
	assert.Equal(t, uint64(1000), *lateInfo.State.TimeStarted)
	assert.Equal(t, pub.ScoredRecord{Scored: 1, Undo: 1}, lateInfo.State.BlueScored[0])

	// Users joining after start are told so up front.
	_, lateJoin := e.join(t, "red")
	assert.True(t, lateJoin.Started)
}

func TestSession_PauseEndReveal(t *testing.T) {
	e := newEnv(t)
	host := e.host(t, protocol.BuiltinRef(0))
	v := e.view(t, fmt.Sprintf("/sse/view/%d", sessionID))
	require.Equal(t, pub.EventSessionInfo, v.next(t).Type)
	user, _ := e.join(t, "red")

	send(t, host, protocol.StartGame{TimeStarted: 5})
	require.Equal(t, pub.EventGameStart, v.next(t).Type)
	assert.Equal(t, protocol.UserStartGame{}, recvUser(t, user))

	send(t, host, protocol.PauseGame{})
	assert.Equal(t, pub.EventGamePause, v.next(t).Type)

	send(t, host, protocol.UnpauseGame{Elapsed: 750})
	ev := v.next(t)
	require.Equal(t, pub.EventGameUnpause, ev.Type)
	assert.Equal(t, uint64(750), decodeContent[pub.GameUnpause](t, ev).PausedTime)

	send(t, host, protocol.EndGame{})
	ev = v.next(t)
	assert.Equal(t, pub.EventGameEnd, ev.Type)
	assert.Empty(t, ev.Content)
	assert.Equal(t, protocol.UserEndGame{}, recvUser(t, user))

	send(t, host, protocol.RevealScore{})
	assert.Equal(t, pub.EventRevealScore, v.next(t).Type)

	snap, _ := e.hub.Get(sessionID)
	assert.True(t, snap.State.Ended)
	assert.Nil(t, snap.State.TimeStarted)
	assert.Equal(t, uint64(750), snap.State.TimePaused)
}

func TestHost_DisconnectTearsDownSession(t *testing.T) {
	e := newEnv(t)
	host := e.host(t, protocol.BuiltinRef(1))
	blue, _ := e.join(t, "blue")
	red, _ := e.join(t, "red")
	v := e.view(t, fmt.Sprintf("/sse/view/%d", sessionID))
	require.Equal(t, pub.EventSessionInfo, v.next(t).Type)

	_ = host.Close(websocket.StatusNormalClosure, "")

	for _, u := range []*websocket.Conn{blue, red} {
		err := recvClosed(t, u)
		assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	}
	v.ended(t)
	require.Eventually(t, func() bool { return e.hub.Len() == 0 }, wait, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("%s/sse/view/%d", e.srv.URL, sessionID))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHost_IllegalTransitionClosesSession(t *testing.T) {
	e := newEnv(t)
	host := e.host(t, protocol.BuiltinRef(0))

	// Reveal is only meaningful once the game has ended.
	send(t, host, protocol.RevealScore{})
	recvClosed(t, host)
	require.Eventually(t, func() bool { return e.hub.Len() == 0 }, wait, 10*time.Millisecond)
}

func TestHost_SecondSelectGameClosesSession(t *testing.T) {
	e := newEnv(t)
	host := e.host(t, protocol.BuiltinRef(0))

	send(t, host, protocol.SelectGame{Ref: protocol.BuiltinRef(1)})
	recvClosed(t, host)
	require.Eventually(t, func() bool { return e.hub.Len() == 0 }, wait, 10*time.Millisecond)
}

func TestHost_HandshakeTimeout(t *testing.T) {
	e := newEnv(t)
	conn := e.dial(t, "/ws/host")

	recvClosed(t, conn)
	assert.Zero(t, e.ids.Load(), "no session id should be drawn")
	assert.Zero(t, e.hub.Len())
}

func TestHost_HandshakeMustBeSelectGame(t *testing.T) {
	cases := []struct {
		name string
		msg  []byte
	}{
		{"start game", protocol.Marshal(protocol.StartGame{TimeStarted: 1})},
		{"unknown builtin", protocol.Marshal(protocol.SelectGame{Ref: protocol.BuiltinRef(99)})},
		{"unknown packet", []byte{200}},
		{"empty", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := newEnv(t)
			conn := e.dial(t, "/ws/host")
			ctx, cancel := context.WithTimeout(context.Background(), wait)
			defer cancel()
			require.NoError(t, conn.Write(ctx, websocket.MessageBinary, c.msg))

			err := recvClosed(t, conn)
			assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
			assert.Zero(t, e.hub.Len())
		})
	}
}

func TestHost_TextHandshakeRejected(t *testing.T) {
	e := newEnv(t)
	conn := e.dial(t, "/ws/host")
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("hello")))

	err := recvClosed(t, conn)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestUser_ScoreBeforeStartDisconnects(t *testing.T) {
	e := newEnv(t)
	e.host(t, protocol.CustomRef(testData()))
	user, _ := e.join(t, "blue")

	send(t, user, protocol.UserScore{Index: 0})
	recvClosed(t, user)

	snap, ok := e.hub.Get(sessionID)
	require.True(t, ok, "a bad user must not take the session down")
	assert.Empty(t, snap.State.BlueScored)
}

func TestUser_OutOfRangeScoreDisconnects(t *testing.T) {
	e := newEnv(t)
	host := e.host(t, protocol.CustomRef(testData()))
	user, _ := e.join(t, "red")

	send(t, host, protocol.StartGame{TimeStarted: 1})
	assert.Equal(t, protocol.UserStartGame{}, recvUser(t, user))

	send(t, user, protocol.UserScore{Index: 2})
	recvClosed(t, user)

	snap, _ := e.hub.Get(sessionID)
	assert.Empty(t, snap.State.RedScored)
}

func TestJoinAndView_RejectedBeforeUpgrade(t *testing.T) {
	e := newEnv(t)
	e.host(t, protocol.BuiltinRef(0))

	cases := []struct {
		path string
		body string
	}{
		{"/ws/join/7/blue", "invalid session id"},
		{"/ws/join/abc/blue", "invalid session id"},
		{fmt.Sprintf("/ws/join/%d/green", sessionID), "invalid team"},
		{"/sse/view/7", "invalid session id"},
		{"/sse/view/-1", "invalid session id"},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			resp, err := http.Get(e.srv.URL + c.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, c.body, strings.TrimSpace(string(body)))
		})
	}
}

func TestView_KeepAlive(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.KeepAliveInterval = 20 * time.Millisecond })
	e.host(t, protocol.BuiltinRef(0))
	v := e.view(t, fmt.Sprintf("/sse/view/%d", sessionID))
	require.Equal(t, pub.EventSessionInfo, v.next(t).Type)

	select {
	case line := <-v.comments:
		assert.Equal(t, ":keep-alive", line)
	case <-time.After(wait):
		t.Fatalf("no keep-alive received")
	}
}
