package arena

import (
	"fmt"
	"time"

	"tankduel/internal/grid"
)

// Fire validates a shoot intent and registers the bullet. The origin and
// direction come from the shooter's client; the server does not recompute
// the muzzle geometry, it enforces the invariants: room ready, shooter
// alive, at most one live bullet per player. Caller holds r.Mu.
func (r *Room) Fire(ownerID string, origin Bullet, now time.Time) (Bullet, error) {
	if r.status != StatusReady {
		return Bullet{}, ErrRoomNotReady
	}
	p, ok := r.players[ownerID]
	if !ok {
		return Bullet{}, ErrNotMember
	}
	if p.Destroyed {
		return Bullet{}, ErrPlayerDestroyed
	}
	for _, b := range r.bullets {
		if b.OwnerID == ownerID {
			return Bullet{}, ErrBulletActive
		}
	}
	if !origin.Direction.Valid() {
		return Bullet{}, ErrBadDirection
	}

	b := &Bullet{
		ID:        origin.ID,
		OwnerID:   ownerID,
		X:         origin.X,
		Y:         origin.Y,
		Direction: origin.Direction,
		Speed:     BulletSpeed,
		CreatedAt: now,
	}
	if b.ID == "" {
		b.ID = fmt.Sprintf("bullet-%s-%d", ownerID, now.UnixMilli())
	}
	r.bullets[b.ID] = b
	return *b, nil
}

// ExpireBullet removes a bullet after a client-reported boundary exit.
// Any member may report it; duplicate or late reports are idempotent no-ops
// (removed=false means nothing to broadcast). Caller holds r.Mu.
func (r *Room) ExpireBullet(bulletID, requesterID string) (ownerID string, removed bool) {
	if _, ok := r.players[requesterID]; !ok {
		return "", false
	}
	b, ok := r.bullets[bulletID]
	if !ok {
		return "", false
	}
	delete(r.bullets, bulletID)
	return b.OwnerID, true
}

// ResolveHit consumes a client-reported bullet-tank collision. The geometric
// overlap is trusted; the server enforces the fairness invariants: the bullet
// must still exist, the target must be a live member, and a destroyed target
// is never killed twice nor has its respawn timer reset. Caller holds r.Mu.
func (r *Room) ResolveHit(bulletID, targetID, requesterID string, now time.Time) (PlayerState, error) {
	if _, ok := r.players[requesterID]; !ok {
		return PlayerState{}, ErrNotMember
	}
	if _, ok := r.bullets[bulletID]; !ok {
		return PlayerState{}, ErrBulletNotFound
	}
	target, ok := r.players[targetID]
	if !ok {
		return PlayerState{}, ErrNotMember
	}
	if target.Destroyed {
		// The bullet is already spent either way.
		delete(r.bullets, bulletID)
		return PlayerState{}, ErrTargetDestroyed
	}
	delete(r.bullets, bulletID)
	target.Destroyed = true
	target.RespawnAt = now.Add(RespawnDelay)
	return *target, nil
}

// Respawn handles a manual respawn request. It is only honored once the
// automatic timer has elapsed; the periodic tick normally gets there first.
// Caller holds r.Mu.
func (r *Room) Respawn(playerID string, now time.Time) (PlayerState, error) {
	p, ok := r.players[playerID]
	if !ok {
		return PlayerState{}, ErrNotMember
	}
	if !p.Destroyed {
		return PlayerState{}, ErrNotRespawnable
	}
	if now.Before(p.RespawnAt) {
		return PlayerState{}, ErrNotRespawnable
	}
	r.respawn(p)
	return *p, nil
}

// TickRespawns revives every destroyed player whose timer has elapsed and
// returns their new states for broadcast. Run from the server's periodic
// tick so respawn timing stays server-driven. Caller holds r.Mu.
func (r *Room) TickRespawns(now time.Time) []PlayerState {
	var revived []PlayerState
	for _, id := range r.members {
		p := r.players[id]
		if p == nil || !p.Destroyed {
			continue
		}
		if now.Before(p.RespawnAt) {
			continue
		}
		r.respawn(p)
		revived = append(revived, *p)
	}
	return revived
}

func (r *Room) respawn(p *PlayerState) {
	p.Destroyed = false
	p.RespawnAt = time.Time{}
	p.Pos = SpawnCell(p.Role)
	p.Facing = grid.Up
}
