package arena

import (
	"testing"
	"time"

	"tankduel/internal/grid"
)

// readyRoom builds a two-player room with alice as host and bob as guest.
func readyRoom(t *testing.T) (*Registry, *Room) {
	t.Helper()
	g := NewRegistry()
	r, _ := g.CreateRoom("alice", time.Now())
	if _, _, err := g.JoinRoom(r.PIN, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	return g, r
}

func TestMoveAcceptedUpdatesPositionAndFacing(t *testing.T) {
	_, r := readyRoom(t)
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p, err := r.Move("alice", grid.Up)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if p.Pos != (grid.Cell{X: 4, Y: 11}) {
		t.Fatalf("position = (%d,%d), want (4,11)", p.Pos.X, p.Pos.Y)
	}
	if p.Facing != grid.Up {
		t.Fatalf("facing = %s, want up", p.Facing)
	}
}

func TestMoveIntoWallIsFacingOnly(t *testing.T) {
	_, r := readyRoom(t)
	r.Mu.Lock()
	defer r.Mu.Unlock()

	// Host starts at (4,12), the bottom row.
	p, err := r.Move("alice", grid.Down)
	if err != nil {
		t.Fatalf("move into wall rejected: %v", err)
	}
	if p.Pos != SpawnCell(RoleHost) {
		t.Fatalf("wall move displaced tank to (%d,%d)", p.Pos.X, p.Pos.Y)
	}
	if p.Facing != grid.Down {
		t.Fatalf("facing = %s, want down", p.Facing)
	}
}

func TestMoveOntoOccupiedCellRejected(t *testing.T) {
	_, r := readyRoom(t)
	r.Mu.Lock()
	defer r.Mu.Unlock()

	// Walk alice from (4,12) right up against bob at (8,12).
	for i := 0; i < 3; i++ {
		if _, err := r.Move("alice", grid.Right); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	before, _ := r.Player("alice")
	if _, err := r.Move("alice", grid.Right); err != ErrCellOccupied {
		t.Fatalf("move onto guest err = %v, want ErrCellOccupied", err)
	}
	after, _ := r.Player("alice")
	if after.Pos != before.Pos || after.Facing != before.Facing {
		t.Fatalf("rejected move mutated state: %+v -> %+v", before, after)
	}
}

func TestMoveOntoDestroyedTankCellAllowed(t *testing.T) {
	_, r := readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()

	b, _ := r.Fire("alice", Bullet{Direction: grid.Right}, now)
	if _, err := r.ResolveHit(b.ID, "bob", "alice", now); err != nil {
		t.Fatalf("resolve hit: %v", err)
	}

	// Bob's corpse at (8,12) no longer blocks.
	for i := 0; i < 4; i++ {
		if _, err := r.Move("alice", grid.Right); err != nil {
			t.Fatalf("step %d onto destroyed cell: %v", i, err)
		}
	}
	p, _ := r.Player("alice")
	if p.Pos != (grid.Cell{X: 8, Y: 12}) {
		t.Fatalf("position = (%d,%d), want (8,12)", p.Pos.X, p.Pos.Y)
	}
}

func TestMoveRejectedWhenNotReadyOrDestroyed(t *testing.T) {
	g := NewRegistry()
	r, _ := g.CreateRoom("alice", time.Now())
	r.Mu.Lock()
	if _, err := r.Move("alice", grid.Up); err != ErrRoomNotReady {
		t.Fatalf("waiting-room move err = %v, want ErrRoomNotReady", err)
	}
	r.Mu.Unlock()

	_, r = readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()
	b, _ := r.Fire("bob", Bullet{Direction: grid.Left}, now)
	if _, err := r.ResolveHit(b.ID, "alice", "bob", now); err != nil {
		t.Fatalf("resolve hit: %v", err)
	}
	if _, err := r.Move("alice", grid.Up); err != ErrPlayerDestroyed {
		t.Fatalf("destroyed move err = %v, want ErrPlayerDestroyed", err)
	}
}

func TestDistinctPositionsAfterAnyAcceptedMove(t *testing.T) {
	_, r := readyRoom(t)
	r.Mu.Lock()
	defer r.Mu.Unlock()

	dirs := []grid.Direction{grid.Right, grid.Right, grid.Right, grid.Right,
		grid.Up, grid.Right, grid.Down, grid.Right}
	for _, d := range dirs {
		r.Move("alice", d)
		a, _ := r.Player("alice")
		b, _ := r.Player("bob")
		if !a.Destroyed && !b.Destroyed && a.Pos == b.Pos {
			t.Fatalf("both live tanks occupy (%d,%d)", a.Pos.X, a.Pos.Y)
		}
	}
}

func TestFireSingleBulletPerPlayer(t *testing.T) {
	_, r := readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()

	b, err := r.Fire("alice", Bullet{ID: "bullet-1", X: 288, Y: 768, Direction: grid.Up}, now)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if b.Speed != BulletSpeed {
		t.Fatalf("bullet speed = %v, want %v", b.Speed, BulletSpeed)
	}
	if b.OwnerID != "alice" {
		t.Fatalf("owner = %s, want alice", b.OwnerID)
	}

	if _, err := r.Fire("alice", Bullet{ID: "bullet-2", Direction: grid.Up}, now); err != ErrBulletActive {
		t.Fatalf("second fire err = %v, want ErrBulletActive", err)
	}
	// The other player may still fire.
	if _, err := r.Fire("bob", Bullet{ID: "bullet-3", Direction: grid.Up}, now); err != nil {
		t.Fatalf("guest fire: %v", err)
	}
	if got := len(r.LiveBullets()); got != 2 {
		t.Fatalf("live bullets = %d, want 2", got)
	}
}

func TestFireAssignsIDWhenMissing(t *testing.T) {
	_, r := readyRoom(t)
	r.Mu.Lock()
	defer r.Mu.Unlock()

	b, err := r.Fire("alice", Bullet{Direction: grid.Up}, time.Now())
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if b.ID == "" {
		t.Fatalf("accepted bullet has empty id")
	}
}

func TestExpireBulletIsIdempotent(t *testing.T) {
	_, r := readyRoom(t)
	r.Mu.Lock()
	defer r.Mu.Unlock()

	b, _ := r.Fire("alice", Bullet{Direction: grid.Up}, time.Now())

	owner, removed := r.ExpireBullet(b.ID, "bob")
	if !removed || owner != "alice" {
		t.Fatalf("first expire: removed=%v owner=%s", removed, owner)
	}
	if _, removed := r.ExpireBullet(b.ID, "bob"); removed {
		t.Fatalf("duplicate expire reported a removal")
	}
	if _, removed := r.ExpireBullet("no-such-bullet", "alice"); removed {
		t.Fatalf("expire of unknown bullet reported a removal")
	}
	if _, removed := r.ExpireBullet(b.ID, "stranger"); removed {
		t.Fatalf("non-member expire reported a removal")
	}
}

func TestResolveHitDestroysTargetOnce(t *testing.T) {
	_, r := readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()

	b, _ := r.Fire("alice", Bullet{Direction: grid.Right}, now)

	target, err := r.ResolveHit(b.ID, "bob", "alice", now)
	if err != nil {
		t.Fatalf("resolve hit: %v", err)
	}
	if !target.Destroyed {
		t.Fatalf("target not destroyed")
	}
	wantRespawn := now.Add(RespawnDelay)
	if !target.RespawnAt.Equal(wantRespawn) {
		t.Fatalf("respawnAt = %v, want %v", target.RespawnAt, wantRespawn)
	}
	if got := len(r.LiveBullets()); got != 0 {
		t.Fatalf("bullets after hit = %d, want 0", got)
	}

	// Duplicate and stale reports must not re-kill or reset the timer.
	if _, err := r.ResolveHit(b.ID, "bob", "alice", now.Add(time.Second)); err != ErrBulletNotFound {
		t.Fatalf("duplicate hit err = %v, want ErrBulletNotFound", err)
	}
	b2, _ := r.Fire("alice", Bullet{Direction: grid.Right}, now)
	if _, err := r.ResolveHit(b2.ID, "bob", "alice", now.Add(time.Second)); err != ErrTargetDestroyed {
		t.Fatalf("double-kill err = %v, want ErrTargetDestroyed", err)
	}
	p, _ := r.Player("bob")
	if !p.RespawnAt.Equal(wantRespawn) {
		t.Fatalf("respawn timer was reset: %v", p.RespawnAt)
	}
}

func TestFireRejectedWhileDestroyed(t *testing.T) {
	_, r := readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()

	b, _ := r.Fire("bob", Bullet{Direction: grid.Left}, now)
	r.ResolveHit(b.ID, "alice", "bob", now)

	if _, err := r.Fire("alice", Bullet{Direction: grid.Up}, now); err != ErrPlayerDestroyed {
		t.Fatalf("dead fire err = %v, want ErrPlayerDestroyed", err)
	}
}

func TestTickRespawnsRevivesAtSpawn(t *testing.T) {
	_, r := readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()

	// Move bob off his spawn first, then kill him.
	r.Move("bob", grid.Up)
	b, _ := r.Fire("alice", Bullet{Direction: grid.Right}, now)
	r.ResolveHit(b.ID, "bob", "alice", now)

	if revived := r.TickRespawns(now.Add(RespawnDelay - time.Millisecond)); len(revived) != 0 {
		t.Fatalf("revived %d players before the timer elapsed", len(revived))
	}
	revived := r.TickRespawns(now.Add(RespawnDelay))
	if len(revived) != 1 {
		t.Fatalf("revived %d players, want 1", len(revived))
	}
	p := revived[0]
	if p.Destroyed {
		t.Fatalf("revived player still destroyed")
	}
	if p.Pos != SpawnCell(RoleGuest) {
		t.Fatalf("revived at (%d,%d), want guest spawn (8,12)", p.Pos.X, p.Pos.Y)
	}
	if p.Facing != grid.Up {
		t.Fatalf("revived facing %s, want up", p.Facing)
	}
	if !p.RespawnAt.IsZero() {
		t.Fatalf("respawnAt not cleared: %v", p.RespawnAt)
	}
	if again := r.TickRespawns(now.Add(2 * RespawnDelay)); len(again) != 0 {
		t.Fatalf("second tick revived %d players", len(again))
	}
}

func TestManualRespawnHonorsTimer(t *testing.T) {
	_, r := readyRoom(t)
	now := time.Now()
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if _, err := r.Respawn("alice", now); err != ErrNotRespawnable {
		t.Fatalf("respawn of live player err = %v, want ErrNotRespawnable", err)
	}

	b, _ := r.Fire("bob", Bullet{Direction: grid.Left}, now)
	r.ResolveHit(b.ID, "alice", "bob", now)

	if _, err := r.Respawn("alice", now.Add(time.Second)); err != ErrNotRespawnable {
		t.Fatalf("early respawn err = %v, want ErrNotRespawnable", err)
	}
	p, err := r.Respawn("alice", now.Add(RespawnDelay))
	if err != nil {
		t.Fatalf("respawn: %v", err)
	}
	if p.Destroyed || p.Pos != SpawnCell(RoleHost) {
		t.Fatalf("respawn state wrong: %+v", p)
	}
}

func TestLeaveAbandonsBullets(t *testing.T) {
	g, r := readyRoom(t)
	now := time.Now()

	r.Mu.Lock()
	r.Fire("bob", Bullet{ID: "bullet-b", Direction: grid.Left}, now)
	r.Mu.Unlock()

	g.Leave("bob")

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if _, ok := r.Player("bob"); ok {
		t.Fatalf("departed player still has state")
	}
	if got := len(r.LiveBullets()); got != 1 {
		t.Fatalf("abandoned bullets = %d, want 1", got)
	}
	// The survivor may still report its boundary exit.
	if _, removed := r.ExpireBullet("bullet-b", "alice"); !removed {
		t.Fatalf("survivor could not expire abandoned bullet")
	}
}

// TestDuelScenario runs the end-to-end sequence from room creation to respawn.
func TestDuelScenario(t *testing.T) {
	g := NewRegistry()
	now := time.Now()

	room, role := g.CreateRoom("host-conn", now)
	if role != RoleHost || len(room.PIN) != 5 {
		t.Fatalf("create: role=%s pin=%q", role, room.PIN)
	}

	_, role, err := g.JoinRoom(room.PIN, "guest-conn")
	if err != nil || role != RoleGuest {
		t.Fatalf("join: role=%s err=%v", role, err)
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Status() != StatusReady {
		t.Fatalf("status = %s, want ready", room.Status())
	}
	guest, _ := room.Player("guest-conn")
	if guest.Pos != (grid.Cell{X: 8, Y: 12}) {
		t.Fatalf("guest spawn = (%d,%d)", guest.Pos.X, guest.Pos.Y)
	}

	host, err := room.Move("host-conn", grid.Up)
	if err != nil || host.Pos != (grid.Cell{X: 4, Y: 11}) {
		t.Fatalf("host move up: pos=(%d,%d) err=%v", host.Pos.X, host.Pos.Y, err)
	}

	// Host tries to reach the guest's cell: walk down then right until blocked.
	room.Move("host-conn", grid.Down)
	for i := 0; i < 3; i++ {
		room.Move("host-conn", grid.Right)
	}
	before, _ := room.Player("host-conn")
	if _, err := room.Move("host-conn", grid.Right); err != ErrCellOccupied {
		t.Fatalf("move onto guest err = %v", err)
	}
	after, _ := room.Player("host-conn")
	if after.Pos != before.Pos {
		t.Fatalf("rejected move changed position")
	}

	hb, err := room.Fire("host-conn", Bullet{Direction: grid.Up}, now)
	if err != nil {
		t.Fatalf("host fire: %v", err)
	}
	if _, err := room.Fire("host-conn", Bullet{Direction: grid.Up}, now); err != ErrBulletActive {
		t.Fatalf("second fire err = %v", err)
	}
	room.ExpireBullet(hb.ID, "guest-conn")

	gb, _ := room.Fire("guest-conn", Bullet{Direction: grid.Left}, now)
	hit, err := room.ResolveHit(gb.ID, "host-conn", "guest-conn", now)
	if err != nil || !hit.Destroyed {
		t.Fatalf("hit on host: %+v err=%v", hit, err)
	}
	if _, err := room.Fire("host-conn", Bullet{Direction: grid.Up}, now); err != ErrPlayerDestroyed {
		t.Fatalf("post-mortem fire err = %v", err)
	}

	revived := room.TickRespawns(now.Add(3 * time.Second))
	if len(revived) != 1 {
		t.Fatalf("revived = %d, want 1", len(revived))
	}
	if revived[0].Pos != (grid.Cell{X: 4, Y: 12}) || revived[0].Facing != grid.Up {
		t.Fatalf("host respawn state: %+v", revived[0])
	}
}
