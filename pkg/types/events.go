package types

import "encoding/json"

// Viewer stream (Server-Sent Events, one JSON object per data line):
//   { "type": "session_info", "content": { state, data } }   always first
//   { "type": "score",        "content": { team: "blue"|"red", score_id, undo } }
//   { "type": "game_start",   "content": { time_started } }
//   { "type": "game_end" }
//   { "type": "game_pause" }
//   { "type": "game_unpause", "content": { paused_time } }
//   { "type": "reveal_score" }

type EventType string

const (
	EventSessionInfo EventType = "session_info"
	EventScore       EventType = "score"
	EventGameStart   EventType = "game_start"
	EventGameEnd     EventType = "game_end"
	EventGamePause   EventType = "game_pause"
	EventGameUnpause EventType = "game_unpause"
	EventRevealScore EventType = "reveal_score"
)

type Event struct {
	Type    EventType `json:"type"`
	Content any       `json:"content,omitempty"`
}

// RawEvent is the decoding counterpart of Event.
type RawEvent struct {
	Type    EventType       `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

type SessionInfo struct {
	State State    `json:"state"`
	Data  GameData `json:"data"`
}

type Score struct {
	Team    string `json:"team"`
	ScoreID uint8  `json:"score_id"`
	Undo    bool   `json:"undo"`
}

type GameStart struct {
	TimeStarted uint64 `json:"time_started"`
}

type GameUnpause struct {
	PausedTime uint64 `json:"paused_time"`
}
