package arena

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"
)

const pinChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PINLength is the length of a room join code.
const PINLength = 5

// Registry owns all active rooms. Alongside the room table it keeps an
// index from connection identity to room PIN, so a stale identity fails
// its lookup cleanly instead of reaching a dangling room.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	playerIndex map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		playerIndex: make(map[string]string),
	}
}

// CreateRoom allocates a fresh unique PIN, creates a waiting room with the
// owner seated as host, and returns it.
func (g *Registry) CreateRoom(ownerID string, now time.Time) (*Room, Role) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var pin string
	for {
		pin = generatePIN()
		if _, exists := g.rooms[pin]; !exists {
			break
		}
	}

	r := newRoom(pin, now)
	r.Mu.Lock()
	role, _ := r.addMember(ownerID)
	r.Mu.Unlock()

	g.rooms[pin] = r
	g.playerIndex[ownerID] = pin
	return r, role
}

// JoinRoom seats a player in an existing room. PINs are matched
// case-insensitively, as the original protocol upcased client input.
func (g *Registry) JoinRoom(pin, playerID string) (*Room, Role, error) {
	pin = strings.ToUpper(pin)

	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[pin]
	if !ok {
		return nil, "", ErrRoomNotFound
	}

	r.Mu.Lock()
	role, err := r.addMember(playerID)
	r.Mu.Unlock()
	if err != nil {
		return nil, "", err
	}

	g.playerIndex[playerID] = pin
	return r, role, nil
}

// Leave removes a player from their room. An empty room is destroyed;
// otherwise the room reverts to waiting. The returned room is nil when the
// identity was not seated anywhere.
func (g *Registry) Leave(playerID string) (r *Room, remaining int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pin, ok := g.playerIndex[playerID]
	if !ok {
		return nil, 0
	}
	delete(g.playerIndex, playerID)

	r, ok = g.rooms[pin]
	if !ok {
		return nil, 0
	}

	r.Mu.Lock()
	r.removeMember(playerID)
	remaining = len(r.members)
	r.Mu.Unlock()

	if remaining == 0 {
		delete(g.rooms, pin)
	}
	return r, remaining
}

// RoomOf resolves a player's room through the index.
func (g *Registry) RoomOf(playerID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	pin, ok := g.playerIndex[playerID]
	if !ok {
		return nil, false
	}
	r, ok := g.rooms[pin]
	return r, ok
}

// RoomByPIN looks up a room by its join code.
func (g *Registry) RoomByPIN(pin string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[strings.ToUpper(pin)]
	return r, ok
}

// Rooms returns all active rooms, for the periodic respawn tick.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// ActiveRooms returns the number of live rooms.
func (g *Registry) ActiveRooms() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// SweepExpired deletes every room older than RoomTTL together with the
// index entries pointing at it, and returns the reclaimed PINs. Runs on a
// fixed interval, independent of game activity.
func (g *Registry) SweepExpired(now time.Time) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var swept []string
	for pin, r := range g.rooms {
		r.Mu.Lock()
		expired := r.Expired(now)
		r.Mu.Unlock()
		if !expired {
			continue
		}
		delete(g.rooms, pin)
		swept = append(swept, pin)
	}
	if len(swept) > 0 {
		for id, pin := range g.playerIndex {
			for _, gone := range swept {
				if pin == gone {
					delete(g.playerIndex, id)
					break
				}
			}
		}
	}
	return swept
}

func generatePIN() string {
	b := make([]byte, PINLength)
	max := big.NewInt(int64(len(pinChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = pinChars[idx.Int64()]
	}
	return string(b)
}
