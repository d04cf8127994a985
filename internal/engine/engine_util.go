package engine

import (
	"fmt"
	"maps"
	"slices"
)

func NewState() State {
	return State{
		BlueScored: map[uint8]ScoredRecord{},
		RedScored:  map[uint8]ScoredRecord{},
	}
}

// Clone returns a deep copy safe to hand out past the registry lock.
func (s State) Clone() State {
	out := s
	out.BlueScored = maps.Clone(s.BlueScored)
	out.RedScored = maps.Clone(s.RedScored)
	if out.BlueScored == nil {
		out.BlueScored = map[uint8]ScoredRecord{}
	}
	if out.RedScored == nil {
		out.RedScored = map[uint8]ScoredRecord{}
	}
	if s.TimeStarted != nil {
		started := *s.TimeStarted
		out.TimeStarted = &started
	}
	return out
}

func (s State) Started() bool { return s.TimeStarted != nil }

func (s State) Scored(team Team) map[uint8]ScoredRecord {
	if team == TeamRed {
		return s.RedScored
	}
	return s.BlueScored
}

func (d GameData) Clone() GameData {
	return GameData{Duration: d.Duration, ScorePoints: slices.Clone(d.ScorePoints)}
}

func (t Team) Valid() bool { return t == TeamBlue || t == TeamRed }

func (t Team) String() string {
	switch t {
	case TeamBlue:
		return "blue"
	case TeamRed:
		return "red"
	default:
		return fmt.Sprintf("team(%d)", uint8(t))
	}
}

func (t Team) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown team %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(text []byte) error {
	parsed, ok := ParseTeam(string(text))
	if !ok {
		return fmt.Errorf("unknown team %q", text)
	}
	*t = parsed
	return nil
}

func ParseTeam(team string) (Team, bool) {
	switch team {
	case "blue":
		return TeamBlue, true
	case "red":
		return TeamRed, true
	default:
		return 0, false
	}
}
