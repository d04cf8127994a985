package types

// Snapshot types mirror the JSON a viewer receives in session_info. They are
// kept free of internal packages so clients can decode the stream directly.
//
// session_info content:
//   state: {
//     blue_scored:  { "<score index>": { scored: number, undo: number } }
//     red_scored:   { "<score index>": { scored: number, undo: number } }
//     time_started: number | null   // epoch millis, null while stopped
//     time_paused:  number          // total millis spent paused
//     paused:       boolean
//     ended:        boolean
//   }
//   data: { duration: number, score_points: [{ name, category, points }] }

type ScorePoint struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Points   int8   `json:"points"`
}

type GameData struct {
	Duration    uint16       `json:"duration"`
	ScorePoints []ScorePoint `json:"score_points"`
}

type ScoredRecord struct {
	Scored uint32 `json:"scored"`
	Undo   uint32 `json:"undo"`
}

type State struct {
	BlueScored  map[uint8]ScoredRecord `json:"blue_scored"`
	RedScored   map[uint8]ScoredRecord `json:"red_scored"`
	TimeStarted *uint64                `json:"time_started"`
	TimePaused  uint64                 `json:"time_paused"`
	Paused      bool                   `json:"paused"`
	Ended       bool                   `json:"ended"`
}
