// Package game is the client-side simulation: optimistic prediction for the
// local tank, authoritative-only mirroring for the remote tank, fixed-speed
// interpolation of visual positions, and the local bullet simulation whose
// boundary/hit detections are reported to the server as intents.
package game

import (
	"fmt"
	"time"

	"tankduel/internal/grid"
)

const (
	// MoveSpeed is the visual interpolation speed in units per frame.
	MoveSpeed = 1.5

	// BulletSpeed is the bullet advance per frame, matching the server's
	// stamped speed so both clients trace identical trajectories.
	BulletSpeed = 8.0

	// BulletSize is the bullet's square footprint edge in visual units.
	BulletSize = 16.0

	// TankSize is the tank's square footprint edge in visual units.
	TankSize = float64(grid.CellSize)

	// Animation cadence in frames: fast while driving, slow while idle.
	animFramesMoving = 9
	animFramesIdle   = 30
)

// Tank is one player's locally mirrored state. Cell is the client's best
// belief of server truth; the visual coordinates exist only for smooth
// rendering and are owned entirely by this client.
type Tank struct {
	ID   string
	Role string

	Cell             grid.Cell
	VisualX, VisualY float64
	TargetX, TargetY float64

	Facing    grid.Direction
	Moving    bool
	Destroyed bool
	AnimFrame int
}

func spawnCell(role string) grid.Cell {
	if role == "guest" {
		return grid.Cell{X: 8, Y: 12}
	}
	return grid.Cell{X: 4, Y: 12}
}

func newTank(role string) *Tank {
	c := spawnCell(role)
	x, y := c.Pixel()
	return &Tank{
		Role:    role,
		Cell:    c,
		VisualX: x, VisualY: y,
		TargetX: x, TargetY: y,
		Facing: grid.Up,
	}
}

// Bullet is a locally simulated projectile. X, Y is the bullet's center.
type Bullet struct {
	ID        string
	OwnerID   string
	X, Y      float64
	Direction grid.Direction
	Speed     float64
}

// Reports produced by Advance. They are intents for the server, not state
// changes: shared state only moves on the server's broadcast.

// BulletExpired reports a bullet that left the battlefield.
type BulletExpired struct {
	BulletID string
}

// BulletHit reports a bullet overlapping a non-owner tank.
type BulletHit struct {
	BulletID string
	TargetID string
}

// World mirrors one room from a single client's point of view.
type World struct {
	LocalID string

	Local   *Tank
	Remote  *Tank
	Bullets map[string]*Bullet

	animTick int
}

// NewWorld builds the local mirror for a client seated with the given role.
// The remote tank's identity is learned from the first server event that
// names it.
func NewWorld(localID, localRole string) *World {
	remoteRole := "guest"
	if localRole == "guest" {
		remoteRole = "host"
	}
	local := newTank(localRole)
	local.ID = localID
	return &World{
		LocalID: localID,
		Local:   local,
		Remote:  newTank(remoteRole),
		Bullets: make(map[string]*Bullet),
	}
}

// tankByID resolves a player id to a tank, binding the remote tank's
// identity on first sight. Unknown third identities return nil.
func (w *World) tankByID(id string) *Tank {
	switch {
	case id == w.LocalID:
		return w.Local
	case w.Remote.ID == "":
		w.Remote.ID = id
		return w.Remote
	case w.Remote.ID == id:
		return w.Remote
	}
	return nil
}

// TryMove applies a move intent optimistically and reports whether it
// should be sent to the server. Facing turns immediately; a tank still
// interpolating toward its last target drops the input entirely, which is
// what rules out diagonal and queued movement.
func (w *World) TryMove(dir grid.Direction) bool {
	t := w.Local
	if t.Destroyed || !dir.Valid() {
		return false
	}
	t.Facing = dir
	if t.Moving {
		return false
	}

	next := t.Cell.Step(dir)
	if next != t.Cell && !w.cellBlocked(next) {
		t.Cell = next
		t.TargetX, t.TargetY = next.Pixel()
		t.Moving = true
	}
	return true
}

// cellBlocked mirrors the server's tank-tank occupancy rule so an
// obviously doomed prediction is never applied locally.
func (w *World) cellBlocked(c grid.Cell) bool {
	return w.Remote.ID != "" && !w.Remote.Destroyed && w.Remote.Cell == c
}

// TryFire spawns a local bullet optimistically and returns it for sending.
// The single-shot guard mirrors the server's: one live bullet per player.
func (w *World) TryFire(now time.Time) (Bullet, bool) {
	if w.Local.Destroyed {
		return Bullet{}, false
	}
	for _, b := range w.Bullets {
		if b.OwnerID == w.LocalID {
			return Bullet{}, false
		}
	}

	b := &Bullet{
		ID:        fmt.Sprintf("bullet-%s-%d", w.LocalID, now.UnixMilli()),
		OwnerID:   w.LocalID,
		Direction: w.Local.Facing,
		Speed:     BulletSpeed,
	}
	b.X, b.Y = muzzle(w.Local)
	w.Bullets[b.ID] = b
	return *b, true
}

// muzzle returns the bullet spawn point: the center of the tank's leading
// edge in its facing direction.
func muzzle(t *Tank) (x, y float64) {
	px, py := t.Cell.Pixel()
	cx := px + TankSize/2
	cy := py + TankSize/2
	dx, dy := t.Facing.Delta()
	return cx + float64(dx)*TankSize/2, cy + float64(dy)*TankSize/2
}

// ApplyMoved reconciles an authoritative player-moved event. The local
// player's own confirmations are ignored: the prediction already applied
// is trusted. Remote updates are ground truth and snap the logical cell,
// leaving the visual position to interpolate.
func (w *World) ApplyMoved(playerID string, cell grid.Cell, dir grid.Direction) {
	if playerID == w.LocalID {
		return
	}
	t := w.tankByID(playerID)
	if t == nil {
		return
	}
	t.Cell = cell
	t.TargetX, t.TargetY = cell.Pixel()
	t.Facing = dir
}

// ApplyBulletShot adds a server-confirmed bullet. The local player's own
// bullet is already present from the optimistic spawn.
func (w *World) ApplyBulletShot(b Bullet, playerID string) {
	if playerID == w.LocalID {
		return
	}
	w.tankByID(playerID) // bind remote identity if still unknown
	speed := b.Speed
	if speed == 0 {
		speed = BulletSpeed
	}
	w.Bullets[b.ID] = &Bullet{
		ID:        b.ID,
		OwnerID:   playerID,
		X:         b.X,
		Y:         b.Y,
		Direction: b.Direction,
		Speed:     speed,
	}
}

// ApplyBulletDestroyed removes a bullet on the server's authority.
// Idempotent: the local simulation may already have dropped it.
func (w *World) ApplyBulletDestroyed(bulletID string) {
	delete(w.Bullets, bulletID)
}

// ApplyCollision handles the authoritative kill confirmation. Only here
// does a tank become destroyed in this client's state.
func (w *World) ApplyCollision(bulletID, targetID string) {
	delete(w.Bullets, bulletID)
	if t := w.tankByID(targetID); t != nil {
		t.Destroyed = true
	}
}

// ApplyRespawn revives a tank at its authoritative position. The visual
// position snaps: respawns teleport, they do not glide.
func (w *World) ApplyRespawn(playerID string, cell grid.Cell, dir grid.Direction) {
	t := w.tankByID(playerID)
	if t == nil {
		return
	}
	t.Destroyed = false
	t.Cell = cell
	t.Facing = dir
	t.VisualX, t.VisualY = cell.Pixel()
	t.TargetX, t.TargetY = t.VisualX, t.VisualY
	t.Moving = false
}

// Advance runs one fixed simulation frame: interpolate both tanks toward
// their targets, advance bullets, and collect boundary/hit reports. The
// reports are intents for the server; Advance also drops the affected
// bullet from the local set optimistically, pending the server's broadcast.
func (w *World) Advance() []interface{} {
	w.interpolate(w.Local)
	w.interpolate(w.Remote)
	w.animate()

	var reports []interface{}
	for id, b := range w.Bullets {
		dx, dy := b.Direction.Delta()
		b.X += float64(dx) * b.Speed
		b.Y += float64(dy) * b.Speed

		if outOfBounds(b) {
			delete(w.Bullets, id)
			reports = append(reports, BulletExpired{BulletID: id})
			continue
		}
		if target := w.hitTarget(b); target != nil {
			delete(w.Bullets, id)
			reports = append(reports, BulletHit{BulletID: id, TargetID: target.ID})
		}
	}
	return reports
}

// interpolate moves a tank's visual position toward its target at fixed
// speed, one axis at a time, landing exactly on the target.
func (w *World) interpolate(t *Tank) {
	if t.VisualX == t.TargetX && t.VisualY == t.TargetY {
		t.Moving = false
		return
	}
	t.Moving = true
	t.VisualX = approach(t.VisualX, t.TargetX, MoveSpeed)
	t.VisualY = approach(t.VisualY, t.TargetY, MoveSpeed)
	if t.VisualX == t.TargetX && t.VisualY == t.TargetY {
		t.Moving = false
	}
}

func approach(v, target, speed float64) float64 {
	d := target - v
	if d > speed {
		return v + speed
	}
	if d < -speed {
		return v - speed
	}
	return target
}

func (w *World) animate() {
	w.animTick++
	limit := animFramesIdle
	if w.Local.Moving || w.Remote.Moving {
		limit = animFramesMoving
	}
	if w.animTick >= limit {
		w.Local.AnimFrame = (w.Local.AnimFrame + 1) % 2
		w.Remote.AnimFrame = (w.Remote.AnimFrame + 1) % 2
		w.animTick = 0
	}
}

func outOfBounds(b *Bullet) bool {
	limit := float64(grid.Width * grid.CellSize)
	return b.X < 0 || b.X > limit || b.Y < 0 || b.Y > limit
}

// hitTarget returns the first non-owner live tank whose footprint overlaps
// the bullet, or nil. Both clients run this same check against the same
// deterministic simulation, which is what lets the server skip geometry.
func (w *World) hitTarget(b *Bullet) *Tank {
	for _, t := range []*Tank{w.Local, w.Remote} {
		if t.ID == "" || t.ID == b.OwnerID || t.Destroyed {
			continue
		}
		if overlaps(b, t) {
			return t
		}
	}
	return nil
}

// overlaps is an axis-aligned box test between the bullet footprint
// (centered on its position) and the tank footprint (anchored at its
// visual top-left corner).
func overlaps(b *Bullet, t *Tank) bool {
	half := BulletSize / 2
	return b.X+half > t.VisualX && b.X-half < t.VisualX+TankSize &&
		b.Y+half > t.VisualY && b.Y-half < t.VisualY+TankSize
}
