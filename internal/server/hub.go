package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tankduel/internal/arena"
	"tankduel/internal/protocol"
)

const (
	// respawnTickInterval drives automatic revives across all rooms.
	respawnTickInterval = 100 * time.Millisecond

	// sweepInterval reclaims rooms past their TTL.
	sweepInterval = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns the registry and all live connections, and routes client intents
// into the arena. Every state change to one room happens and is broadcast
// under that room's lock, so members observe events in acceptance order.
type Hub struct {
	registry *arena.Registry

	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{
		registry: arena.NewRegistry(),
		conns:    make(map[string]*Conn),
	}
}

// Run starts the background respawn tick and the stale-room sweeper, and
// blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	respawn := time.NewTicker(respawnTickInterval)
	sweep := time.NewTicker(sweepInterval)
	defer respawn.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-respawn.C:
			h.tickRespawns(now)
		case now := <-sweep.C:
			if swept := h.registry.SweepExpired(now); len(swept) > 0 {
				Log.Infof("swept %d expired room(s): %v", len(swept), swept)
			}
		}
	}
}

// HandleWS upgrades an HTTP request and runs the connection until it drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	c := newConn(uuid.NewString(), ws)
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
	Log.Infof("player connected: %s", c.ID)

	go c.writePump()
	c.readPump(h)

	h.disconnect(c)
}

// HandleHealth reports process liveness and the active room count.
func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"activeRooms": h.registry.ActiveRooms(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// disconnect treats a dropped connection as an implicit leave.
func (h *Hub) disconnect(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID)
	h.mu.Unlock()
	close(c.sendCh)

	room, remaining := h.registry.Leave(c.ID)
	Log.Infof("player disconnected: %s", c.ID)
	if room == nil || remaining == 0 {
		return
	}
	h.broadcastRoom(room, protocol.Envelope{
		Type: protocol.MsgPlayerDisconnected,
		Payload: protocol.PlayerDisconnectedPayload{
			Message:     "Player disconnected",
			PlayerCount: remaining,
		},
	})
}

// broadcastRoom queues an envelope to every current member of a room.
func (h *Hub) broadcastRoom(room *arena.Room, env protocol.Envelope) {
	room.Mu.Lock()
	members := room.Members()
	room.Mu.Unlock()
	h.sendTo(members, env)
}

// sendTo queues an envelope to the named connections.
func (h *Hub) sendTo(ids []string, env protocol.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ids {
		if c, ok := h.conns[id]; ok {
			c.send(env)
		}
	}
}

// tickRespawns revives eligible players in every room and broadcasts each
// revival to its room.
func (h *Hub) tickRespawns(now time.Time) {
	for _, room := range h.registry.Rooms() {
		room.Mu.Lock()
		revived := room.TickRespawns(now)
		members := room.Members()
		for _, p := range revived {
			h.sendTo(members, protocol.Envelope{
				Type: protocol.MsgPlayerRespawn,
				Payload: protocol.PlayerRespawnEvent{
					PlayerID:  p.ID,
					Position:  p.Pos,
					Direction: p.Facing,
				},
			})
		}
		room.Mu.Unlock()
		for _, p := range revived {
			Log.Infof("respawned %s in room %s at (%d,%d)", p.ID, room.PIN, p.Pos.X, p.Pos.Y)
		}
	}
}
