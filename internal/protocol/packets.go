package protocol

import (
	"fmt"

	"github.com/DoyleJ11/live-scoring-backend/internal/engine"
)

// Packet is the capability shared by every variant of every catalog.
type Packet interface {
	ID() uint8
	Encode(w *Writer)
}

// Marshal writes the discriminant followed by the packet's fields.
func Marshal(p Packet) []byte {
	w := NewWriter()
	w.WriteUint8(p.ID())
	p.Encode(w)
	return w.Bytes()
}

// Catalogs. Each is a closed union, sealed by an unexported marker method.
type (
	// HostClientbound is sent by the server to the host.
	HostClientbound interface {
		Packet
		hostClientbound()
	}
	// HostServerbound is sent by the host to the server.
	HostServerbound interface {
		Packet
		hostServerbound()
	}
	// UserClientbound is sent by the server to a team client.
	UserClientbound interface {
		Packet
		userClientbound()
	}
	// UserServerbound is sent by a team client to the server.
	UserServerbound interface {
		Packet
		userServerbound()
	}
)

// Host clientbound.

type HostSessionInfo struct {
	SessionID uint32
	Data      engine.GameData
}

type HostScore struct {
	Team  engine.Team
	Index uint8
	Undo  bool
}

func (HostSessionInfo) ID() uint8 { return 0 }
func (HostScore) ID() uint8       { return 1 }

func (p HostSessionInfo) Encode(w *Writer) {
	w.WriteUint32(p.SessionID)
	WriteGameData(w, p.Data)
}

func (p HostScore) Encode(w *Writer) {
	writeTeam(w, p.Team)
	w.WriteUint8(p.Index)
	w.WriteBool(p.Undo)
}

func (HostSessionInfo) hostClientbound() {}
func (HostScore) hostClientbound()       {}

func DecodeHostClientbound(b []byte) (HostClientbound, error) {
	r := NewReader(b)
	id, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch id {
	case 0:
		sid, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		data, err := ReadGameData(r)
		if err != nil {
			return nil, err
		}
		return HostSessionInfo{SessionID: sid, Data: data}, nil
	case 1:
		team, err := readTeam(r)
		if err != nil {
			return nil, err
		}
		idx, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		undo, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		return HostScore{Team: team, Index: idx, Undo: undo}, nil
	default:
		return nil, fmt.Errorf("%w: host clientbound %d", ErrUnknownPacket, id)
	}
}

// Host serverbound.

type StartGame struct {
	TimeStarted uint64 // epoch millis
}

type EndGame struct{}

type PauseGame struct{}

type UnpauseGame struct {
	Elapsed uint64 // millis spent paused
}

// SelectGame is the host handshake: it picks the session's GameData.
type SelectGame struct {
	Ref GameDataRef
}

type RevealScore struct{}

func (StartGame) ID() uint8   { return 0 }
func (EndGame) ID() uint8     { return 1 }
func (PauseGame) ID() uint8   { return 2 }
func (UnpauseGame) ID() uint8 { return 3 }
func (SelectGame) ID() uint8  { return 4 }
func (RevealScore) ID() uint8 { return 5 }

func (p StartGame) Encode(w *Writer)   { w.WriteUint64(p.TimeStarted) }
func (EndGame) Encode(*Writer)         {}
func (PauseGame) Encode(*Writer)       {}
func (p UnpauseGame) Encode(w *Writer) { w.WriteUint64(p.Elapsed) }
func (p SelectGame) Encode(w *Writer)  { writeGameDataRef(w, p.Ref) }
func (RevealScore) Encode(*Writer)     {}

func (StartGame) hostServerbound()   {}
func (EndGame) hostServerbound()     {}
func (PauseGame) hostServerbound()   {}
func (UnpauseGame) hostServerbound() {}
func (SelectGame) hostServerbound()  {}
func (RevealScore) hostServerbound() {}

func DecodeHostServerbound(b []byte, games GameLookup) (HostServerbound, error) {
	r := NewReader(b)
	id, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch id {
	case 0:
		ts, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return StartGame{TimeStarted: ts}, nil
	case 1:
		return EndGame{}, nil
	case 2:
		return PauseGame{}, nil
	case 3:
		elapsed, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return UnpauseGame{Elapsed: elapsed}, nil
	case 4:
		ref, err := readGameDataRef(r, games)
		if err != nil {
			return nil, err
		}
		return SelectGame{Ref: ref}, nil
	case 5:
		return RevealScore{}, nil
	default:
		return nil, fmt.Errorf("%w: host serverbound %d", ErrUnknownPacket, id)
	}
}

// User clientbound.

type UserSessionInfo struct {
	Started bool
	Data    engine.GameData
}

type UserStartGame struct{}

type UserEndGame struct{}

func (UserSessionInfo) ID() uint8 { return 0 }
func (UserStartGame) ID() uint8   { return 1 }
func (UserEndGame) ID() uint8     { return 2 }

func (p UserSessionInfo) Encode(w *Writer) {
	w.WriteBool(p.Started)
	WriteGameData(w, p.Data)
}
func (UserStartGame) Encode(*Writer) {}
func (UserEndGame) Encode(*Writer)   {}

func (UserSessionInfo) userClientbound() {}
func (UserStartGame) userClientbound()   {}
func (UserEndGame) userClientbound()     {}

func DecodeUserClientbound(b []byte) (UserClientbound, error) {
	r := NewReader(b)
	id, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch id {
	case 0:
		started, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		data, err := ReadGameData(r)
		if err != nil {
			return nil, err
		}
		return UserSessionInfo{Started: started, Data: data}, nil
	case 1:
		return UserStartGame{}, nil
	case 2:
		return UserEndGame{}, nil
	default:
		return nil, fmt.Errorf("%w: user clientbound %d", ErrUnknownPacket, id)
	}
}

// User serverbound.

type UserScore struct {
	Index uint8
	Undo  bool
}

func (UserScore) ID() uint8 { return 0 }

func (p UserScore) Encode(w *Writer) {
	w.WriteUint8(p.Index)
	w.WriteBool(p.Undo)
}

func (UserScore) userServerbound() {}

func DecodeUserServerbound(b []byte) (UserServerbound, error) {
	r := NewReader(b)
	id, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch id {
	case 0:
		idx, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		undo, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		return UserScore{Index: idx, Undo: undo}, nil
	default:
		return nil, fmt.Errorf("%w: user serverbound %d", ErrUnknownPacket, id)
	}
}
