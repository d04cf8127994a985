package protocol

import (
	"fmt"

	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
)

// GameLookup resolves builtin game references carried by SelectGame.
type GameLookup interface {
	ByIndex(idx uint64) (engine.GameData, bool)
}

const (
	refBuiltin uint8 = 0
	refCustom  uint8 = 1
)

// GameDataRef is either an index into the builtin catalog or a custom
// GameData sent inline by the host.
type GameDataRef struct {
	Builtin bool
	Index   uint64
	Custom  engine.GameData
}

func BuiltinRef(idx uint64) GameDataRef { return GameDataRef{Builtin: true, Index: idx} }

func CustomRef(data engine.GameData) GameDataRef { return GameDataRef{Custom: data} }

func (ref GameDataRef) Resolve(games GameLookup) (engine.GameData, error) {
	if !ref.Builtin {
		return ref.Custom, nil
	}
	data, ok := games.ByIndex(ref.Index)
	if !ok {
		return engine.GameData{}, fmt.Errorf("%w: %d", ErrUnknownGame, ref.Index)
	}
	return data, nil
}

func writeGameDataRef(w *Writer, ref GameDataRef) {
	if ref.Builtin {
		w.WriteUint8(refBuiltin)
		w.WriteUint64(ref.Index)
		return
	}
	w.WriteUint8(refCustom)
	WriteGameData(w, ref.Custom)
}

func readGameDataRef(r *Reader, games GameLookup) (GameDataRef, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return GameDataRef{}, err
	}
	switch tag {
	case refBuiltin:
		idx, err := r.ReadUint64()
		if err != nil {
			return GameDataRef{}, err
		}
		ref := BuiltinRef(idx)
		if _, err := ref.Resolve(games); err != nil {
			return GameDataRef{}, err
		}
		return ref, nil
	case refCustom:
		data, err := ReadGameData(r)
		if err != nil {
			return GameDataRef{}, err
		}
		return CustomRef(data), nil
	default:
		return GameDataRef{}, fmt.Errorf("%w: %d", ErrUnknownReference, tag)
	}
}

// WriteGameData writes the duration followed by every score point. There is
// no count prefix: the table runs to the end of the message, so GameData is
// always the last field of a packet.
func WriteGameData(w *Writer, data engine.GameData) {
	w.WriteUint16(data.Duration)
	for _, sp := range data.ScorePoints {
		w.WriteString(sp.Name)
		w.WriteString(sp.Category)
		w.WriteInt8(sp.Points)
	}
}

// ReadGameData consumes the rest of the buffer. A table longer than
// engine.MaxScorePoints is rejected outright rather than truncated.
func ReadGameData(r *Reader) (engine.GameData, error) {
	duration, err := r.ReadUint16()
	if err != nil {
		return engine.GameData{}, fmt.Errorf("game data duration: %w", err)
	}

	var points []engine.ScorePoint
	for r.Remaining() > 0 {
		if len(points) == engine.MaxScorePoints {
			return engine.GameData{}, fmt.Errorf("%w: more than %d", ErrTooManyScorePoints, engine.MaxScorePoints)
		}
		sp, err := readScorePoint(r)
		if err != nil {
			return engine.GameData{}, fmt.Errorf("score point %d: %w", len(points), err)
		}
		points = append(points, sp)
	}

	return engine.GameData{Duration: duration, ScorePoints: points}, nil
}

func readScorePoint(r *Reader) (engine.ScorePoint, error) {
	name, err := r.ReadString()
	if err != nil {
		return engine.ScorePoint{}, err
	}
	category, err := r.ReadString()
	if err != nil {
		return engine.ScorePoint{}, err
	}
	points, err := r.ReadInt8()
	if err != nil {
		return engine.ScorePoint{}, err
	}
	return engine.ScorePoint{Name: name, Category: category, Points: points}, nil
}

func writeTeam(w *Writer, t engine.Team) { w.WriteUint8(uint8(t)) }

func readTeam(r *Reader) (engine.Team, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	t := engine.Team(v)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTeam, v)
	}
	return t, nil
}
