package engine

import (
	"errors"
	"fmt"
)

var ErrAlreadyStarted = errors.New("game already started")
var ErrNotStarted = errors.New("game not started")
var ErrGameEnded = errors.New("game already ended")
var ErrNotEnded = errors.New("game not ended")
var ErrAlreadyPaused = errors.New("game already paused")
var ErrNotPaused = errors.New("game not paused")
var ErrScoreIndexOutOfRange = errors.New("score index out of range")
var ErrUnsupportedCommand = errors.New("unsupported command")

// MaxScorePoints bounds GameData.ScorePoints; the wire index is a single byte.
const MaxScorePoints = 256

type Team uint8

const (
	TeamBlue Team = 0
	TeamRed  Team = 1
)

type ScorePoint struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Points   int8   `json:"points"`
}

// GameData is the scoreboard vocabulary of a session. It is never mutated
// once a session has been created; index position is the wire identifier.
type GameData struct {
	Duration    uint16       `json:"duration"` // seconds
	ScorePoints []ScorePoint `json:"score_points"`
}

type ScoredRecord struct {
	Scored uint32 `json:"scored"`
	Undo   uint32 `json:"undo"`
}

type State struct {
	BlueScored  map[uint8]ScoredRecord `json:"blue_scored"`
	RedScored   map[uint8]ScoredRecord `json:"red_scored"`
	TimeStarted *uint64                `json:"time_started"` // epoch millis
	TimePaused  uint64                 `json:"time_paused"`  // millis
	Paused      bool                   `json:"paused"`
	Ended       bool                   `json:"ended"`
}

type CommandType string

const (
	CmdStartGame   CommandType = "StartGame"
	CmdEndGame     CommandType = "EndGame"
	CmdPauseGame   CommandType = "PauseGame"
	CmdUnpauseGame CommandType = "UnpauseGame"
	CmdRevealScore CommandType = "RevealScore"
	CmdScore       CommandType = "Score"
)

/*
	CmdStartGame   -> EvtGameStarted   (users + viewers)
	CmdEndGame     -> EvtGameEnded     (users + viewers)
	CmdPauseGame   -> EvtGamePaused    (viewers)
	CmdUnpauseGame -> EvtGameUnpaused  (viewers)
	CmdRevealScore -> EvtScoreRevealed (viewers)
	CmdScore       -> EvtScored        (host + viewers)
*/

type Command struct {
	Type        CommandType
	Team        Team
	Index       uint8
	Undo        bool
	TimeStarted uint64
	Elapsed     uint64
}

type EventType string

const (
	EvtGameStarted   EventType = "GameStarted"
	EvtGameEnded     EventType = "GameEnded"
	EvtGamePaused    EventType = "GamePaused"
	EvtGameUnpaused  EventType = "GameUnpaused"
	EvtScoreRevealed EventType = "ScoreRevealed"
	EvtScored        EventType = "Scored"
)

type Event struct {
	Type        EventType
	Team        Team
	Index       uint8
	Undo        bool
	TimeStarted uint64
	PausedTime  uint64
}

// Apply checks cmd against s and, when legal, mutates s in place. A rejected
// command leaves s untouched.
func Apply(data GameData, s *State, cmd Command) (Event, error) {
	switch cmd.Type {
	case CmdStartGame:
		if s.TimeStarted != nil {
			return Event{}, ErrAlreadyStarted
		}
		// Ended games stay ended: a running clock on an ended game breaks the
		// ended => not started invariant.
		if s.Ended {
			return Event{}, ErrGameEnded
		}
		started := cmd.TimeStarted
		s.TimeStarted = &started
		return Event{Type: EvtGameStarted, TimeStarted: started}, nil

	case CmdEndGame:
		if s.TimeStarted == nil {
			return Event{}, ErrNotStarted
		}
		s.TimeStarted = nil
		s.Ended = true
		return Event{Type: EvtGameEnded}, nil

	case CmdPauseGame:
		if s.Paused {
			return Event{}, ErrAlreadyPaused
		}
		s.Paused = true
		return Event{Type: EvtGamePaused}, nil

	case CmdUnpauseGame:
		if !s.Paused {
			return Event{}, ErrNotPaused
		}
		s.TimePaused += cmd.Elapsed
		s.Paused = false
		return Event{Type: EvtGameUnpaused, PausedTime: cmd.Elapsed}, nil

	case CmdRevealScore:
		if !s.Ended {
			return Event{}, ErrNotEnded
		}
		return Event{Type: EvtScoreRevealed}, nil

	case CmdScore:
		if int(cmd.Index) >= len(data.ScorePoints) {
			return Event{}, fmt.Errorf("%w: %d of %d", ErrScoreIndexOutOfRange, cmd.Index, len(data.ScorePoints))
		}
		scored := s.scoredFor(cmd.Team)
		rec := scored[cmd.Index]
		if cmd.Undo {
			rec.Undo++
		} else {
			rec.Scored++
		}
		scored[cmd.Index] = rec
		return Event{Type: EvtScored, Team: cmd.Team, Index: cmd.Index, Undo: cmd.Undo}, nil

	default:
		return Event{}, ErrUnsupportedCommand
	}
}

// CanScore is the stricter check team clients are held to: the clock must be
// running and the index must exist. Pausing does not block scoring.
func CanScore(data GameData, s State, index uint8) error {
	if s.TimeStarted == nil {
		return ErrNotStarted
	}
	if int(index) >= len(data.ScorePoints) {
		return fmt.Errorf("%w: %d of %d", ErrScoreIndexOutOfRange, index, len(data.ScorePoints))
	}
	return nil
}

// Points totals a team's score, counting undos as negative.
func Points(data GameData, s State, team Team) int {
	total := 0
	for idx, rec := range s.Scored(team) {
		if int(idx) >= len(data.ScorePoints) {
			continue
		}
		total += (int(rec.Scored) - int(rec.Undo)) * int(data.ScorePoints[idx].Points)
	}
	return total
}

func (s *State) scoredFor(team Team) map[uint8]ScoredRecord {
	if team == TeamRed {
		if s.RedScored == nil {
			s.RedScored = map[uint8]ScoredRecord{}
		}
		return s.RedScored
	}
	if s.BlueScored == nil {
		s.BlueScored = map[uint8]ScoredRecord{}
	}
	return s.BlueScored
}
