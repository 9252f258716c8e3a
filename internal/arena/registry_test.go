package arena

import (
	"fmt"
	"testing"
	"time"
)

func TestCreateRoomAssignsHostAndPIN(t *testing.T) {
	g := NewRegistry()
	r, role := g.CreateRoom("alice", time.Now())

	if role != RoleHost {
		t.Fatalf("creator role = %s, want host", role)
	}
	if len(r.PIN) != PINLength {
		t.Fatalf("PIN %q has length %d, want %d", r.PIN, len(r.PIN), PINLength)
	}
	for _, ch := range r.PIN {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("PIN %q contains invalid character %q", r.PIN, ch)
		}
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.Status() != StatusWaiting {
		t.Fatalf("new room status = %s, want waiting", r.Status())
	}
	p, ok := r.Player("alice")
	if !ok {
		t.Fatalf("host has no player state")
	}
	if p.Pos != SpawnCell(RoleHost) {
		t.Fatalf("host spawned at (%d,%d), want (4,12)", p.Pos.X, p.Pos.Y)
	}
}

func TestJoinRoomFillsAndReadies(t *testing.T) {
	g := NewRegistry()
	r, _ := g.CreateRoom("alice", time.Now())

	joined, role, err := g.JoinRoom(r.PIN, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined != r {
		t.Fatalf("join returned a different room")
	}
	if role != RoleGuest {
		t.Fatalf("second member role = %s, want guest", role)
	}

	r.Mu.Lock()
	if r.Status() != StatusReady {
		t.Fatalf("room with 2 members has status %s, want ready", r.Status())
	}
	p, _ := r.Player("bob")
	if p.Pos != SpawnCell(RoleGuest) {
		t.Fatalf("guest spawned at (%d,%d), want (8,12)", p.Pos.X, p.Pos.Y)
	}
	r.Mu.Unlock()
}

func TestJoinRoomIsCaseInsensitive(t *testing.T) {
	g := NewRegistry()
	r, _ := g.CreateRoom("alice", time.Now())

	lower := ""
	for _, ch := range r.PIN {
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		lower += string(ch)
	}
	if _, _, err := g.JoinRoom(lower, "bob"); err != nil {
		t.Fatalf("lowercase join: %v", err)
	}
}

func TestJoinRoomErrors(t *testing.T) {
	g := NewRegistry()
	r, _ := g.CreateRoom("alice", time.Now())

	if _, _, err := g.JoinRoom("ZZZZZ", "bob"); err != ErrRoomNotFound {
		t.Fatalf("bad pin err = %v, want ErrRoomNotFound", err)
	}
	if _, _, err := g.JoinRoom(r.PIN, "alice"); err != ErrAlreadyJoined {
		t.Fatalf("rejoin err = %v, want ErrAlreadyJoined", err)
	}
	if _, _, err := g.JoinRoom(r.PIN, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := g.JoinRoom(r.PIN, "carol"); err != ErrRoomFull {
		t.Fatalf("third join err = %v, want ErrRoomFull", err)
	}
}

func TestLeaveRevertsOrDestroysRoom(t *testing.T) {
	g := NewRegistry()
	r, _ := g.CreateRoom("alice", time.Now())
	g.JoinRoom(r.PIN, "bob")

	left, remaining := g.Leave("bob")
	if left != r || remaining != 1 {
		t.Fatalf("leave bob: remaining = %d, want 1", remaining)
	}
	r.Mu.Lock()
	if r.Status() != StatusWaiting {
		t.Fatalf("room status after leave = %s, want waiting", r.Status())
	}
	r.Mu.Unlock()

	_, remaining = g.Leave("alice")
	if remaining != 0 {
		t.Fatalf("leave alice: remaining = %d, want 0", remaining)
	}
	if _, ok := g.RoomByPIN(r.PIN); ok {
		t.Fatalf("empty room still registered")
	}
	if _, ok := g.RoomOf("alice"); ok {
		t.Fatalf("stale identity still resolves a room")
	}
}

func TestLeaveUnknownIdentityIsNoop(t *testing.T) {
	g := NewRegistry()
	if r, _ := g.Leave("ghost"); r != nil {
		t.Fatalf("leave of unknown identity returned a room")
	}
}

func TestSweepExpiredReclaimsOldRooms(t *testing.T) {
	g := NewRegistry()
	now := time.Now()
	old, _ := g.CreateRoom("alice", now.Add(-11*time.Minute))
	fresh, _ := g.CreateRoom("bob", now)

	swept := g.SweepExpired(now)
	if len(swept) != 1 || swept[0] != old.PIN {
		t.Fatalf("swept = %v, want [%s]", swept, old.PIN)
	}
	if _, ok := g.RoomByPIN(old.PIN); ok {
		t.Fatalf("expired room still registered")
	}
	if _, ok := g.RoomOf("alice"); ok {
		t.Fatalf("index entry for swept room survived")
	}
	if _, ok := g.RoomByPIN(fresh.PIN); !ok {
		t.Fatalf("fresh room was swept")
	}
}

func TestCreateRoomPINsAreUnique(t *testing.T) {
	g := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		r, _ := g.CreateRoom(fmt.Sprintf("p%d", i), time.Now())
		if seen[r.PIN] {
			t.Fatalf("duplicate PIN %s among active rooms", r.PIN)
		}
		seen[r.PIN] = true
	}
}
