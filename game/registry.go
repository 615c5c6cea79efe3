package game

import (
	"strings"

	"github.com/google/uuid"

	"github.com/nicksaban20/Fibbage/textutil"
)

type joinOutcome int

const (
	joinCreated joinOutcome = iota
	joinRejoined
	joinReconnected
	joinStolen
)

// playerRegistry tracks player identities, their connection bindings and
// presence. It is owned by the room actor and never locked.
type playerRegistry struct {
	players  []*Player
	maxSeats int
}

func newPlayerRegistry(maxSeats int) playerRegistry {
	return playerRegistry{maxSeats: maxSeats}
}

func (reg *playerRegistry) Players() []*Player {
	return reg.players
}

func (reg *playerRegistry) byID(id string) *Player {
	for _, p := range reg.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (reg *playerRegistry) byName(name string) *Player {
	key := textutil.Canonicalize(name)
	for _, p := range reg.players {
		if textutil.Canonicalize(p.Name) == key {
			return p
		}
	}
	return nil
}

func (reg *playerRegistry) bySession(s NetworkSession) *Player {
	if s == nil {
		return nil
	}
	for _, p := range reg.players {
		if p.session == s {
			return p
		}
	}
	return nil
}

func (reg *playerRegistry) host() *Player {
	for _, p := range reg.players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// seatCount counts non-host players, the only ones the capacity limit
// applies to.
func (reg *playerRegistry) seatCount() int {
	n := 0
	for _, p := range reg.players {
		if !p.IsHost {
			n++
		}
	}
	return n
}

// resolveJoin applies the join resolution order: exact-connection rejoin,
// reconnect of an offline identity, session steal of an online one, then new
// player. stolen is the previous connection to close after a steal.
func (reg *playerRegistry) resolveJoin(s NetworkSession, name string, isHost bool, phase Phase) (p *Player, outcome joinOutcome, stolen NetworkSession, err error) {
	name = trimName(name)
	if name == "" {
		return nil, 0, nil, ErrNameRequired
	}

	if p := reg.bySession(s); p != nil {
		p.Name = name
		p.IsHost = p.IsHost || isHost
		p.IsOnline = true
		return p, joinRejoined, nil, nil
	}

	if p := reg.byName(name); p != nil {
		old := p.session
		p.session = s
		p.IsOnline = true
		if old == nil {
			return p, joinReconnected, nil, nil
		}
		return p, joinStolen, old, nil
	}

	if phase != PhaseLobby {
		return nil, 0, nil, ErrGameInProgress
	}
	if len(reg.players) > 0 && reg.host() == nil && !isHost {
		return nil, 0, nil, ErrNoHost
	}
	if !isHost && reg.seatCount() >= reg.maxSeats {
		return nil, 0, nil, ErrRoomFull
	}

	p = &Player{
		ID:       uuid.NewString(),
		Name:     name,
		IsHost:   isHost || len(reg.players) == 0,
		IsOnline: true,
		session:  s,
	}
	reg.players = append(reg.players, p)
	return p, joinCreated, nil, nil
}

// remove hard-removes a player and reassigns the host flag to the first
// remaining player when the host is the one leaving.
func (reg *playerRegistry) remove(target *Player) {
	for i, p := range reg.players {
		if p != target {
			continue
		}
		reg.players = append(reg.players[:i], reg.players[i+1:]...)
		break
	}
	if target.IsHost && len(reg.players) > 0 && reg.host() == nil {
		reg.players[0].IsHost = true
	}
}

// markOffline flips the player bound to s into a soft-disconnected state.
// Identity, score and round progress are retained for reconnection.
func (reg *playerRegistry) markOffline(s NetworkSession) *Player {
	p := reg.bySession(s)
	if p == nil {
		return nil
	}
	p.IsOnline = false
	p.session = nil
	return p
}

func trimName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return name
}
