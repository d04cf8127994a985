// Package catalog holds the predefined competition definitions a host may pick
// by index instead of sending a custom GameData.
package catalog

import (
	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
)

type BuiltinGame struct {
	Name string          `json:"name"`
	Data engine.GameData `json:"data"`
}

// Catalog is a read-only table of builtin games. Index order is stable and is
// what the wire protocol refers to.
type Catalog struct {
	games []BuiltinGame
}

func New(games ...BuiltinGame) *Catalog {
	return &Catalog{games: games}
}

// Default returns the games shipped with the server.
func Default() *Catalog {
	return New(builtinGames...)
}

// ByIndex returns a private copy so callers may keep it past the catalog.
func (c *Catalog) ByIndex(idx uint64) (engine.GameData, bool) {
	if idx >= uint64(len(c.games)) {
		return engine.GameData{}, false
	}
	return c.games[idx].Data.Clone(), true
}

func (c *Catalog) Lookup(name string) (engine.GameData, bool) {
	for _, g := range c.games {
		if g.Name == name {
			return g.Data.Clone(), true
		}
	}
	return engine.GameData{}, false
}

func (c *Catalog) All() []BuiltinGame {
	out := make([]BuiltinGame, len(c.games))
	for i, g := range c.games {
		out[i] = BuiltinGame{Name: g.Name, Data: g.Data.Clone()}
	}
	return out
}

func (c *Catalog) Len() int { return len(c.games) }

func minutes(m uint16) uint16 { return m * 60 }

var builtinGames = []BuiltinGame{
	{
		Name: "FRC Rapid React 2023",
		Data: engine.GameData{
			Duration: minutes(5),
			ScorePoints: []engine.ScorePoint{
				{Name: "cube", Category: "cube", Points: 2},
				{Name: "cone", Category: "cone", Points: 3},
				{Name: "hit penalty", Category: "penalty", Points: -2},
				{Name: "side penalty", Category: "penalty", Points: -3},
			},
		},
	},
	{
		Name: "FRC Crescendo 2024",
		Data: engine.GameData{
			Duration: minutes(5),
			ScorePoints: []engine.ScorePoint{
				{Name: "amp", Category: "amp", Points: 1},
				{Name: "speaker", Category: "speaker", Points: 3},
				{Name: "park", Category: "stage", Points: 1},
				{Name: "climb", Category: "stage", Points: 2},
				{Name: "buddy climb", Category: "stage", Points: 4},
				{Name: "hit penalty", Category: "penalty", Points: -2},
				{Name: "side penalty", Category: "penalty", Points: -3},
			},
		},
	},
}
