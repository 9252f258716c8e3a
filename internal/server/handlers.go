package server

import (
	"encoding/json"
	"errors"
	"time"

	"tankduel/internal/arena"
	"tankduel/internal/protocol"
)

// handleMessage dispatches one inbound client message. Rejections never
// tear down the connection: invalid intents are answered with a typed error
// event or silently dropped, matching the intent/authoritative-event split.
func (h *Hub) handleMessage(c *Conn, t protocol.MessageType, raw json.RawMessage) {
	switch t {
	case protocol.MsgCreateGame:
		h.handleCreateGame(c)
	case protocol.MsgJoinGame:
		h.handleJoinGame(c, raw)
	case protocol.MsgGetRoomInfo:
		h.handleGetRoomInfo(c, raw)
	case protocol.MsgPlayerMove:
		h.handlePlayerMove(c, raw)
	case protocol.MsgPlayerShoot:
		h.handlePlayerShoot(c, raw)
	case protocol.MsgBulletDestroy:
		h.handleBulletDestroy(c, raw)
	case protocol.MsgBulletTankCollision:
		h.handleBulletCollision(c, raw)
	case protocol.MsgPlayerRespawn:
		h.handlePlayerRespawn(c)
	case protocol.MsgPing:
		c.send(protocol.Envelope{Type: protocol.MsgPong})
	default:
		Log.Warnf("unknown message type from %s: %s", c.ID, t)
	}
}

func (h *Hub) handleCreateGame(c *Conn) {
	h.leaveCurrentRoom(c)

	room, role := h.registry.CreateRoom(c.ID, time.Now())
	Log.Infof("room created: %s by %s", room.PIN, c.ID)

	c.send(protocol.Envelope{
		Type: protocol.MsgGameCreated,
		Payload: protocol.GameCreatedPayload{
			Pin:      room.PIN,
			Role:     string(role),
			Status:   string(arena.StatusWaiting),
			PlayerID: c.ID,
		},
	})
	c.send(protocol.Envelope{
		Type: protocol.MsgRoomUpdate,
		Payload: protocol.RoomUpdatePayload{
			PlayerCount: 1,
			Status:      string(arena.StatusWaiting),
		},
	})
}

func (h *Hub) handleJoinGame(c *Conn, raw json.RawMessage) {
	payload, err := protocol.Decode[protocol.JoinGamePayload](raw)
	if err != nil {
		Log.Warnf("bad join-game payload from %s: %v", c.ID, err)
		return
	}
	h.leaveCurrentRoom(c)

	room, role, err := h.registry.JoinRoom(payload.Pin, c.ID)
	if err != nil {
		Log.Infof("join failed for %s: %v", c.ID, err)
		c.send(protocol.Envelope{
			Type:    protocol.MsgJoinError,
			Payload: protocol.JoinErrorPayload{Error: joinErrorMessage(err)},
		})
		return
	}

	room.Mu.Lock()
	status := room.Status()
	count := room.PlayerCount()
	members := room.Members()

	c.send(protocol.Envelope{
		Type: protocol.MsgGameJoined,
		Payload: protocol.GameJoinedPayload{
			Pin:         room.PIN,
			Role:        string(role),
			Status:      string(status),
			PlayerID:    c.ID,
			PlayerCount: count,
		},
	})
	h.sendTo(members, protocol.Envelope{
		Type: protocol.MsgRoomUpdate,
		Payload: protocol.RoomUpdatePayload{
			PlayerCount: count,
			Status:      string(status),
		},
	})
	if status == arena.StatusReady {
		h.sendTo(members, protocol.Envelope{
			Type: protocol.MsgGameReady,
			Payload: protocol.GameReadyPayload{
				Message:     "Both players connected! Game ready to start.",
				PlayerCount: count,
			},
		})
	}
	room.Mu.Unlock()

	Log.Infof("player %s joined room %s as %s", c.ID, room.PIN, role)
}

func (h *Hub) handleGetRoomInfo(c *Conn, raw json.RawMessage) {
	payload, err := protocol.Decode[protocol.GetRoomInfoPayload](raw)
	if err != nil {
		return
	}
	var info protocol.RoomInfoPayload
	if room, ok := h.registry.RoomByPIN(payload.Pin); ok {
		room.Mu.Lock()
		info = protocol.RoomInfoPayload{
			Pin:         room.PIN,
			PlayerCount: room.PlayerCount(),
			MaxPlayers:  arena.MaxPlayers,
			Status:      string(room.Status()),
		}
		room.Mu.Unlock()
	}
	c.send(protocol.Envelope{Type: protocol.MsgRoomInfo, Payload: info})
}

func (h *Hub) handlePlayerMove(c *Conn, raw json.RawMessage) {
	payload, err := protocol.Decode[protocol.PlayerMovePayload](raw)
	if err != nil {
		return
	}
	room, ok := h.registry.RoomOf(c.ID)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	p, err := room.Move(c.ID, payload.Direction)
	if err != nil {
		Log.Debugf("move rejected for %s: %v", c.ID, err)
		return
	}
	h.sendTo(room.Members(), protocol.Envelope{
		Type: protocol.MsgPlayerMoved,
		Payload: protocol.PlayerMovedPayload{
			PlayerID:  p.ID,
			Position:  p.Pos,
			Direction: p.Facing,
		},
	})
}

func (h *Hub) handlePlayerShoot(c *Conn, raw json.RawMessage) {
	payload, err := protocol.Decode[protocol.PlayerShootPayload](raw)
	if err != nil {
		return
	}
	room, ok := h.registry.RoomOf(c.ID)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	b, err := room.Fire(c.ID, arena.Bullet{
		ID:        payload.Bullet.ID,
		X:         payload.Bullet.X,
		Y:         payload.Bullet.Y,
		Direction: payload.Bullet.Direction,
	}, time.Now())
	if err != nil {
		Log.Debugf("shot rejected for %s: %v", c.ID, err)
		return
	}
	h.sendTo(room.Members(), protocol.Envelope{
		Type: protocol.MsgBulletShot,
		Payload: protocol.BulletShotPayload{
			Bullet: protocol.Bullet{
				ID:        b.ID,
				OwnerID:   b.OwnerID,
				X:         b.X,
				Y:         b.Y,
				Direction: b.Direction,
				Speed:     b.Speed,
			},
			PlayerID: b.OwnerID,
		},
	})
}

func (h *Hub) handleBulletDestroy(c *Conn, raw json.RawMessage) {
	payload, err := protocol.Decode[protocol.BulletDestroyPayload](raw)
	if err != nil {
		return
	}
	room, ok := h.registry.RoomOf(c.ID)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	owner, removed := room.ExpireBullet(payload.BulletID, c.ID)
	if !removed {
		// Duplicate or stale report; already handled.
		return
	}
	h.sendTo(room.Members(), protocol.Envelope{
		Type: protocol.MsgBulletDestroyed,
		Payload: protocol.BulletDestroyedPayload{
			BulletID: payload.BulletID,
			PlayerID: owner,
		},
	})
}

func (h *Hub) handleBulletCollision(c *Conn, raw json.RawMessage) {
	payload, err := protocol.Decode[protocol.BulletTankCollisionPayload](raw)
	if err != nil {
		return
	}
	room, ok := h.registry.RoomOf(c.ID)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	target, err := room.ResolveHit(payload.BulletID, payload.TargetPlayerID, c.ID, time.Now())
	if err != nil {
		Log.Debugf("collision report rejected from %s: %v", c.ID, err)
		return
	}
	h.sendTo(room.Members(), protocol.Envelope{
		Type: protocol.MsgBulletTankCollision,
		Payload: protocol.BulletTankCollisionEvent{
			BulletID:       payload.BulletID,
			TargetPlayerID: target.ID,
			Collision:      true,
		},
	})
}

func (h *Hub) handlePlayerRespawn(c *Conn) {
	room, ok := h.registry.RoomOf(c.ID)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	p, err := room.Respawn(c.ID, time.Now())
	if err != nil {
		Log.Debugf("manual respawn rejected for %s: %v", c.ID, err)
		return
	}
	h.sendTo(room.Members(), protocol.Envelope{
		Type: protocol.MsgPlayerRespawn,
		Payload: protocol.PlayerRespawnEvent{
			PlayerID:  p.ID,
			Position:  p.Pos,
			Direction: p.Facing,
		},
	})
}

// leaveCurrentRoom detaches a connection from whatever room it occupies
// before it creates or joins another. The remaining member is notified the
// same way a disconnect would.
func (h *Hub) leaveCurrentRoom(c *Conn) {
	room, remaining := h.registry.Leave(c.ID)
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

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, arena.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, arena.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, arena.ErrAlreadyJoined):
		return "Already in room"
	}
	return "Unable to join room"
}
