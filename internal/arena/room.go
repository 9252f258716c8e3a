// Package arena holds the server's authoritative session state: the room
// registry, per-room player and projectile state, and the rule engines that
// validate movement, shooting, hits and respawns.
//
// Locking model: the Registry guards its own room table and player index.
// Each Room carries its own Mu; every caller serializes all access to one
// room's state (reads and writes) through it, which keeps same-room
// operations strictly ordered while different rooms proceed in parallel.
package arena

import (
	"errors"
	"sync"
	"time"

	"tankduel/internal/grid"
)

// Role is a player's seat in the room. The first member is the host,
// the second the guest.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusReady   Status = "ready"
)

const (
	// MaxPlayers is the fixed room capacity.
	MaxPlayers = 2

	// RoomTTL is how long a room may exist before the sweeper reclaims it,
	// regardless of activity.
	RoomTTL = 10 * time.Minute

	// RespawnDelay is the time a destroyed tank stays down.
	RespawnDelay = 3000 * time.Millisecond

	// BulletSpeed is the fixed scalar projectile speed in visual units per
	// simulation frame. The server stamps it onto accepted bullets so both
	// clients simulate identical trajectories.
	BulletSpeed = 8.0
)

// SpawnCell returns the canonical spawn position for a role.
func SpawnCell(role Role) grid.Cell {
	if role == RoleGuest {
		return grid.Cell{X: 8, Y: 12}
	}
	return grid.Cell{X: 4, Y: 12}
}

// Rejection reasons. These are returned values, never panics: an invalid
// intent leaves room state untouched.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyJoined   = errors.New("already in room")
	ErrNotMember       = errors.New("not a room member")
	ErrRoomNotReady    = errors.New("room is not ready")
	ErrPlayerDestroyed = errors.New("player is destroyed")
	ErrCellOccupied    = errors.New("cell occupied by another tank")
	ErrBadDirection    = errors.New("unknown direction")
	ErrBulletActive    = errors.New("player already has a live bullet")
	ErrBulletNotFound  = errors.New("bullet not found")
	ErrTargetDestroyed = errors.New("target already destroyed")
	ErrNotRespawnable  = errors.New("respawn timer still running")
)

// PlayerState is one member's authoritative combat state.
type PlayerState struct {
	ID        string
	Role      Role
	Pos       grid.Cell
	Facing    grid.Direction
	Destroyed bool
	RespawnAt time.Time
}

// Bullet is a live projectile. Position is continuous visual units.
type Bullet struct {
	ID        string
	OwnerID   string
	X, Y      float64
	Direction grid.Direction
	Speed     float64
	CreatedAt time.Time
}

// Room is one two-player session. All fields below Mu are guarded by it.
type Room struct {
	Mu sync.Mutex

	PIN       string
	CreatedAt time.Time

	members []string // join order; members[0] is the host
	players map[string]*PlayerState
	bullets map[string]*Bullet
	status  Status
}

func newRoom(pin string, now time.Time) *Room {
	return &Room{
		PIN:       pin,
		CreatedAt: now,
		players:   make(map[string]*PlayerState),
		bullets:   make(map[string]*Bullet),
		status:    StatusWaiting,
	}
}

// addMember seats a player and initializes their state. Caller holds Mu.
func (r *Room) addMember(id string) (Role, error) {
	if len(r.members) >= MaxPlayers {
		return "", ErrRoomFull
	}
	for _, m := range r.members {
		if m == id {
			return "", ErrAlreadyJoined
		}
	}
	role := RoleHost
	if len(r.members) == 1 {
		role = RoleGuest
	}
	r.members = append(r.members, id)
	r.players[id] = &PlayerState{
		ID:     id,
		Role:   role,
		Pos:    SpawnCell(role),
		Facing: grid.Up,
	}
	if len(r.members) == MaxPlayers {
		r.status = StatusReady
	}
	return role, nil
}

// removeMember drops a player and their state. The player's live bullets
// are abandoned in place: the surviving client still simulates them and
// reports their boundary exit. Caller holds Mu.
func (r *Room) removeMember(id string) bool {
	idx := -1
	for i, m := range r.members {
		if m == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	delete(r.players, id)
	if len(r.members) < MaxPlayers {
		r.status = StatusWaiting
	}
	return true
}

// Status returns the room lifecycle state. Caller holds Mu.
func (r *Room) Status() Status { return r.status }

// PlayerCount returns the current member count. Caller holds Mu.
func (r *Room) PlayerCount() int { return len(r.members) }

// Members returns the member identities in join order. Caller holds Mu.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Player returns a copy of one member's state. Caller holds Mu.
func (r *Room) Player(id string) (PlayerState, bool) {
	p, ok := r.players[id]
	if !ok {
		return PlayerState{}, false
	}
	return *p, true
}

// LiveBullets returns copies of all in-flight bullets. Caller holds Mu.
func (r *Room) LiveBullets() []Bullet {
	out := make([]Bullet, 0, len(r.bullets))
	for _, b := range r.bullets {
		out = append(out, *b)
	}
	return out
}

// Expired reports whether the room has outlived RoomTTL. Caller holds Mu.
func (r *Room) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) > RoomTTL
}
