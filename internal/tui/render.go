package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tankduel/internal/game"
	"tankduel/internal/grid"
)

var (
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15"))

	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	hostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	guestStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	wreckStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	toastStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	pinStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)
)

// tankGlyphs maps a facing to its two-column board glyph.
var tankGlyphs = map[grid.Direction]string{
	grid.Up:    "▲▲",
	grid.Down:  "▼▼",
	grid.Left:  "◀◀",
	grid.Right: "▶▶",
}

// RenderBoard draws the 13x13 battlefield. Tanks and bullets are placed at
// the cell containing their visual position, so interpolation shows up as
// cell-by-cell motion.
func RenderBoard(w *game.World) string {
	type sprite struct {
		glyph string
		style lipgloss.Style
	}
	cells := make(map[grid.Cell]sprite)

	for _, t := range []*game.Tank{w.Local, w.Remote} {
		style := hostStyle
		if t.Role == "guest" {
			style = guestStyle
		}
		glyph := tankGlyphs[t.Facing]
		if t.Destroyed {
			glyph = "✕✕"
			style = wreckStyle
		}
		cells[grid.CellAt(t.VisualX, t.VisualY)] = sprite{glyph, style}
	}

	for _, b := range w.Bullets {
		c := grid.CellAt(b.X, b.Y)
		if _, taken := cells[c]; !taken {
			cells[c] = sprite{"••", bulletStyle}
		}
	}

	var sb strings.Builder
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if s, ok := cells[grid.Cell{X: x, Y: y}]; ok {
				sb.WriteString(s.style.Render(s.glyph))
			} else {
				sb.WriteString("··")
			}
		}
		if y < grid.Height-1 {
			sb.WriteString("\n")
		}
	}
	return boardStyle.Render(sb.String())
}

func RenderInfo(pin, role string, w *game.World) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("TANK DUEL") + "\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Room: %s", pin)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("You:  %s", role)) + "\n\n")

	local := "alive"
	if w.Local.Destroyed {
		local = "destroyed"
	}
	remote := "alive"
	if w.Remote.Destroyed {
		remote = "destroyed"
	}
	sb.WriteString(infoStyle.Render("You      "+local) + "\n")
	sb.WriteString(infoStyle.Render("Opponent "+remote) + "\n\n")

	sb.WriteString(titleStyle.Render("CONTROLS") + "\n")
	sb.WriteString(infoStyle.Render("↑↓←→/WASD move") + "\n")
	sb.WriteString(infoStyle.Render("SPACE     fire") + "\n")
	sb.WriteString(infoStyle.Render("R         respawn") + "\n")
	sb.WriteString(infoStyle.Render("P/ESC     pause") + "\n")

	return sb.String()
}

func RenderMenu() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("51")).
		Align(lipgloss.Center).
		Render(`
╔══════════════════════════════╗
║        TANK  DUEL            ║
║   Two-player tank battle     ║
╚══════════════════════════════╝

   [1] Create a room
   [2] Join with a PIN

   Press 1/C or 2/J to select
   Press Q to quit
`)
}

func RenderJoinEntry(pinInput string) string {
	boxes := make([]string, 5)
	for i := range boxes {
		if i < len(pinInput) {
			boxes[i] = string(pinInput[i])
		} else {
			boxes[i] = "_"
		}
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("=== JOIN ROOM ===") + "\n\n")
	sb.WriteString(infoStyle.Render("Enter the 5-character PIN:") + "\n\n")
	sb.WriteString(pinStyle.Render(strings.Join(boxes, " ")) + "\n\n")
	sb.WriteString(infoStyle.Render("ENTER to join, ESC to go back") + "\n")
	return sb.String()
}

func RenderLobby(pin string, players int, status, role string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("=== ROOM ===") + "\n\n")
	if role == "host" {
		sb.WriteString(infoStyle.Render("Share this PIN with your opponent:") + "\n\n")
	}
	sb.WriteString(pinStyle.Render(FormatPIN(pin)) + "\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Players: %d/2", players)) + "\n")

	if status == "ready" {
		sb.WriteString(infoStyle.Render("Both players seated, starting...") + "\n")
	} else {
		sb.WriteString(infoStyle.Render("Waiting for an opponent...") + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("Press Q to quit") + "\n")

	return sb.String()
}
