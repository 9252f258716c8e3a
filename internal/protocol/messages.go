package protocol

import (
	"encoding/json"

	"tankduel/internal/grid"
)

// MessageType identifies the kind of message sent over the wire.
// The event names match the original browser protocol so payloads stay
// recognizable in logs and captures.
type MessageType string

const (
	// Client -> Server messages
	MsgCreateGame    MessageType = "create-game"
	MsgJoinGame      MessageType = "join-game"
	MsgGetRoomInfo   MessageType = "get-room-info"
	MsgPlayerMove    MessageType = "player-move"
	MsgPlayerShoot   MessageType = "player-shoot"
	MsgBulletDestroy MessageType = "bullet-destroy"
	MsgPing          MessageType = "ping"

	// Server -> Client messages
	MsgGameCreated        MessageType = "game-created"
	MsgGameJoined         MessageType = "game-joined"
	MsgJoinError          MessageType = "join-error"
	MsgRoomUpdate         MessageType = "room-update"
	MsgRoomInfo           MessageType = "room-info"
	MsgGameReady          MessageType = "game-ready"
	MsgPlayerMoved        MessageType = "player-moved"
	MsgBulletShot         MessageType = "bullet-shot"
	MsgBulletDestroyed    MessageType = "bullet-destroyed"
	MsgPlayerDisconnected MessageType = "player-disconnected"
	MsgPong               MessageType = "pong"

	// Sent in both directions: the client reports a locally detected hit or a
	// respawn request, the server broadcasts the authoritative outcome.
	MsgBulletTankCollision MessageType = "bullet-tank-collision"
	MsgPlayerRespawn       MessageType = "player-respawn"
)

// Envelope is the top-level wire format for all messages.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Bullet is the wire form of a projectile. Position is continuous
// (visual units), unlike tank positions which are grid cells.
type Bullet struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId,omitempty"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Direction grid.Direction `json:"direction"`
	Speed     float64        `json:"speed,omitempty"`
}

// --- Client -> Server payloads ---

// JoinGamePayload carries the 5-character room PIN to join.
type JoinGamePayload struct {
	Pin string `json:"pin"`
}

// GetRoomInfoPayload asks for a room's public status.
type GetRoomInfoPayload struct {
	Pin string `json:"pin"`
}

// PlayerMovePayload is a single-step move intent.
type PlayerMovePayload struct {
	Direction  grid.Direction `json:"direction"`
	Delta      grid.Cell      `json:"delta"`
	PlayerRole string         `json:"playerRole"`
}

// PlayerShootPayload is a fire intent carrying the client-computed bullet.
type PlayerShootPayload struct {
	Bullet     Bullet `json:"bullet"`
	PlayerRole string `json:"playerRole"`
}

// BulletDestroyPayload reports a client-detected boundary exit.
type BulletDestroyPayload struct {
	BulletID   string `json:"bulletId"`
	PlayerRole string `json:"playerRole"`
}

// BulletTankCollisionPayload reports a client-detected bullet-tank hit.
type BulletTankCollisionPayload struct {
	BulletID       string `json:"bulletId"`
	TargetPlayerID string `json:"targetPlayerId"`
	PlayerRole     string `json:"playerRole"`
}

// PlayerRespawnPayload is a manual respawn request. The server's automatic
// respawn tick normally supersedes it.
type PlayerRespawnPayload struct {
	PlayerRole string `json:"playerRole"`
}

// --- Server -> Client payloads ---

// GameCreatedPayload is the reply to create-game.
type GameCreatedPayload struct {
	Pin      string `json:"pin"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	PlayerID string `json:"playerId"`
}

// GameJoinedPayload is the reply to a successful join-game.
type GameJoinedPayload struct {
	Pin         string `json:"pin"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

// JoinErrorPayload is the reply to a failed join-game.
type JoinErrorPayload struct {
	Error string `json:"error"`
}

// RoomUpdatePayload announces a membership or status change to the room.
type RoomUpdatePayload struct {
	PlayerCount int    `json:"playerCount"`
	Status      string `json:"status"`
}

// RoomInfoPayload answers get-room-info.
type RoomInfoPayload struct {
	Pin         string `json:"pin"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Status      string `json:"status"`
}

// GameReadyPayload tells the room both seats are filled.
type GameReadyPayload struct {
	Message     string `json:"message"`
	PlayerCount int    `json:"playerCount"`
}

// PlayerMovedPayload is the authoritative result of an accepted move.
type PlayerMovedPayload struct {
	PlayerID  string         `json:"playerId"`
	Position  grid.Cell      `json:"position"`
	Direction grid.Direction `json:"direction"`
}

// BulletShotPayload is the authoritative bullet spawn.
type BulletShotPayload struct {
	Bullet   Bullet `json:"bullet"`
	PlayerID string `json:"playerId"`
}

// BulletDestroyedPayload is the authoritative bullet removal.
type BulletDestroyedPayload struct {
	BulletID string `json:"bulletId"`
	PlayerID string `json:"playerId"`
}

// BulletTankCollisionEvent is the authoritative kill confirmation.
type BulletTankCollisionEvent struct {
	BulletID       string `json:"bulletId"`
	TargetPlayerID string `json:"targetPlayerId"`
	Collision      bool   `json:"collision"`
}

// PlayerRespawnEvent is the authoritative respawn broadcast.
type PlayerRespawnEvent struct {
	PlayerID  string         `json:"playerId"`
	Position  grid.Cell      `json:"position"`
	Direction grid.Direction `json:"direction"`
}

// PlayerDisconnectedPayload announces that a member left the room.
type PlayerDisconnectedPayload struct {
	Message     string `json:"message"`
	PlayerCount int    `json:"playerCount"`
}

// Decode unmarshals a raw payload into the given payload type.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	err := json.Unmarshal(raw, &out)
	return out, err
}
