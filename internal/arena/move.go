package arena

import "tankduel/internal/grid"

// Move validates and applies a single-step move intent. Movement is
// event-driven: one grid cell per accepted input, never diagonal, no
// server-side movement tick.
//
// The target cell is computed as a clamped step, so a move into a wall is
// accepted as a facing-only change with zero displacement. A move onto a
// cell held by another non-destroyed tank is rejected outright, facing
// included. Caller holds r.Mu.
func (r *Room) Move(playerID string, dir grid.Direction) (PlayerState, error) {
	if r.status != StatusReady {
		return PlayerState{}, ErrRoomNotReady
	}
	p, ok := r.players[playerID]
	if !ok {
		return PlayerState{}, ErrNotMember
	}
	if p.Destroyed {
		return PlayerState{}, ErrPlayerDestroyed
	}
	if !dir.Valid() {
		return PlayerState{}, ErrBadDirection
	}

	next := p.Pos.Step(dir)
	for id, other := range r.players {
		if id == playerID || other.Destroyed {
			continue
		}
		if other.Pos == next {
			return PlayerState{}, ErrCellOccupied
		}
	}

	p.Pos = next
	p.Facing = dir
	return *p, nil
}
