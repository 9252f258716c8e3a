// Package grid defines the shared coordinate contract for the battlefield:
// a 13x13 cell grid where each cell maps to 64 visual units. Both the server
// validators and the client simulation work in these coordinates.
package grid

const (
	// Width and Height are the number of cells per axis.
	Width  = 13
	Height = 13

	// CellSize is the edge length of one cell in visual units (pixels).
	CellSize = 64

	// MaxX and MaxY are the largest valid cell coordinates.
	MaxX = Width - 1
	MaxY = Height - 1
)

// Direction is one of the four facings a tank or bullet can have.
// The values match the wire protocol.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Valid reports whether d is one of the four known facings.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Delta returns the unit cell offset for one step in direction d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Cell is a logical grid position.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// In reports whether c lies inside the grid.
func (c Cell) In() bool {
	return c.X >= 0 && c.X <= MaxX && c.Y >= 0 && c.Y <= MaxY
}

// Clamp returns c limited to the grid bounds.
func (c Cell) Clamp() Cell {
	if c.X < 0 {
		c.X = 0
	}
	if c.X > MaxX {
		c.X = MaxX
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.Y > MaxY {
		c.Y = MaxY
	}
	return c
}

// Step returns the cell one move in direction d from c, clamped to the grid.
// A step into a wall therefore returns c unchanged.
func (c Cell) Step(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}.Clamp()
}

// Pixel returns the visual-space position of the cell's top-left corner.
func (c Cell) Pixel() (x, y float64) {
	return float64(c.X * CellSize), float64(c.Y * CellSize)
}

// CellAt returns the cell containing the visual-space point (x, y).
func CellAt(x, y float64) Cell {
	return Cell{X: int(x) / CellSize, Y: int(y) / CellSize}.Clamp()
}
