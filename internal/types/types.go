package types

import "github.com/DoyleJ11/live-scoring-backend/internal/engine"

// HostCommand travels user -> host: a validated score request to be applied
// by the host connection.
type HostCommand struct {
	Team  engine.Team
	Index uint8
	Undo  bool
}

type UserNoticeType string

const (
	UserGameStart UserNoticeType = "GameStart"
	UserGameEnd   UserNoticeType = "GameEnd"
	UserClose     UserNoticeType = "Close" // session is going away
)

// UserNotice travels to every team client of a session.
type UserNotice struct {
	Type UserNoticeType
}

// ViewerMessage is the derived display event fanned out to spectators.
type ViewerMessage = engine.Event
