package tui

import (
	"encoding/json"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tankduel/internal/game"
	"tankduel/internal/grid"
	"tankduel/internal/netclient"
	"tankduel/internal/protocol"
)

// --- Custom tea.Msg types ---

// FrameMsg drives one simulation frame of the local world.
type FrameMsg time.Time

// TickMsg is the slow UI tick: toast expiry and keepalive pings.
type TickMsg time.Time

const (
	framePeriod  = 16 * time.Millisecond
	uiTickPeriod = 250 * time.Millisecond
	toastTTL     = 3 * time.Second
	pingPeriod   = 30 * time.Second
)

// --- Screens ---

type Screen int

const (
	ScreenMenu Screen = iota
	ScreenJoinEntry
	ScreenLobby
	ScreenPlaying
)

// --- Model ---

type Model struct {
	screen   Screen
	playerID string
	role     string
	pin      string
	status   string
	players  int
	width    int
	height   int

	// PIN being typed on the join screen.
	pinInput string

	// Local world mirror, nil until game-ready.
	world  *game.World
	paused bool

	// Network
	client *netclient.Client

	// Transient status line with an expiry deadline.
	toast      string
	toastUntil time.Time

	lastPing time.Time

	err          error
	disconnected bool
}

func NewModel(client *netclient.Client) Model {
	return Model{
		screen: ScreenMenu,
		client: client,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func frameCmd() tea.Cmd {
	return tea.Tick(framePeriod, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(uiTickPeriod, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case FrameMsg:
		return m.handleFrame()
	case TickMsg:
		return m.handleTick()

	// Network messages
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		return m, nil
	case netclient.ServerMsg:
		return m.handleServerMsg(msg)
	}
	return m, nil
}

// --- Network message handlers ---

func (m Model) handleServerMsg(msg netclient.ServerMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case protocol.MsgGameCreated:
		var p protocol.GameCreatedPayload
		if json.Unmarshal(msg.Raw, &p) == nil {
			m.playerID = p.PlayerID
			m.role = p.Role
			m.pin = p.Pin
			m.status = p.Status
			m.players = 1
			m.screen = ScreenLobby
		}

	case protocol.MsgGameJoined:
		var p protocol.GameJoinedPayload
		if json.Unmarshal(msg.Raw, &p) == nil {
			m.playerID = p.PlayerID
			m.role = p.Role
			m.pin = p.Pin
			m.status = p.Status
			m.players = p.PlayerCount
			m.screen = ScreenLobby
		}

	case protocol.MsgJoinError:
		var p protocol.JoinErrorPayload
		if json.Unmarshal(msg.Raw, &p) == nil {
			m.showToast(p.Error)
		}

	case protocol.MsgRoomUpdate:
		var p protocol.RoomUpdatePayload
		if json.Unmarshal(msg.Raw, &p) == nil {
			m.players = p.PlayerCount
			m.status = p.Status
		}

	case protocol.MsgGameReady:
		m.world = game.NewWorld(m.playerID, m.role)
		m.paused = false
		m.screen = ScreenPlaying
		return m, frameCmd()

	case protocol.MsgPlayerMoved:
		var p protocol.PlayerMovedPayload
		if json.Unmarshal(msg.Raw, &p) == nil && m.world != nil {
			m.world.ApplyMoved(p.PlayerID, p.Position, p.Direction)
		}

	case protocol.MsgBulletShot:
		var p protocol.BulletShotPayload
		if json.Unmarshal(msg.Raw, &p) == nil && m.world != nil {
			m.world.ApplyBulletShot(game.Bullet{
				ID:        p.Bullet.ID,
				X:         p.Bullet.X,
				Y:         p.Bullet.Y,
				Direction: p.Bullet.Direction,
				Speed:     p.Bullet.Speed,
			}, p.PlayerID)
		}

	case protocol.MsgBulletDestroyed:
		var p protocol.BulletDestroyedPayload
		if json.Unmarshal(msg.Raw, &p) == nil && m.world != nil {
			m.world.ApplyBulletDestroyed(p.BulletID)
		}

	case protocol.MsgBulletTankCollision:
		var p protocol.BulletTankCollisionEvent
		if json.Unmarshal(msg.Raw, &p) == nil && m.world != nil && p.Collision {
			m.world.ApplyCollision(p.BulletID, p.TargetPlayerID)
			if p.TargetPlayerID == m.playerID {
				m.showToast("You were destroyed! Respawning...")
			}
		}

	case protocol.MsgPlayerRespawn:
		var p protocol.PlayerRespawnEvent
		if json.Unmarshal(msg.Raw, &p) == nil && m.world != nil {
			m.world.ApplyRespawn(p.PlayerID, p.Position, p.Direction)
		}

	case protocol.MsgPlayerDisconnected:
		var p protocol.PlayerDisconnectedPayload
		if json.Unmarshal(msg.Raw, &p) == nil {
			m.players = p.PlayerCount
			m.status = "waiting"
			m.world = nil
			m.screen = ScreenLobby
			m.showToast(p.Message)
		}
	}

	return m, nil
}

// --- Key handlers ---

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit
	case "q":
		if m.screen == ScreenPlaying || m.screen == ScreenJoinEntry {
			// During gameplay q is not a quit key; on the join
			// screen it is part of nothing, PINs are A-Z0-9, but
			// keep typing flow consistent and ignore it there too.
			break
		}
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenMenu:
		return m.handleMenuKeys(msg)
	case ScreenJoinEntry:
		return m.handleJoinEntryKeys(msg)
	case ScreenPlaying:
		return m.handlePlayingKeys(msg)
	}
	return m, nil
}

func (m Model) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "1", "c":
		m.send(protocol.MsgCreateGame, nil)
	case "2", "j":
		m.pinInput = ""
		m.screen = ScreenJoinEntry
	}
	return m, nil
}

func (m Model) handleJoinEntryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.screen = ScreenMenu
		return m, nil
	case tea.KeyBackspace:
		if len(m.pinInput) > 0 {
			m.pinInput = m.pinInput[:len(m.pinInput)-1]
		}
		return m, nil
	case tea.KeyEnter:
		if len(m.pinInput) == 5 {
			m.send(protocol.MsgJoinGame, protocol.JoinGamePayload{Pin: m.pinInput})
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes && len(m.pinInput) < 5 {
		for _, r := range msg.Runes {
			r = toPinRune(r)
			if r != 0 && len(m.pinInput) < 5 {
				m.pinInput += string(r)
			}
		}
	}
	return m, nil
}

// toPinRune maps a typed rune to its PIN alphabet form, or 0 if invalid.
func toPinRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return r - 'a' + 'A'
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	}
	return 0
}

func (m Model) handlePlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.world == nil {
		return m, nil
	}

	switch msg.String() {
	case "esc", "p":
		m.paused = !m.paused
		return m, nil
	}
	if m.paused {
		return m, nil
	}

	switch msg.String() {
	case "up", "w":
		m.tryMove(grid.Up)
	case "down", "s":
		m.tryMove(grid.Down)
	case "left", "a":
		m.tryMove(grid.Left)
	case "right", "d":
		m.tryMove(grid.Right)
	case " ":
		if b, ok := m.world.TryFire(time.Now()); ok {
			m.send(protocol.MsgPlayerShoot, protocol.PlayerShootPayload{
				Bullet: protocol.Bullet{
					ID:        b.ID,
					OwnerID:   b.OwnerID,
					X:         b.X,
					Y:         b.Y,
					Direction: b.Direction,
					Speed:     b.Speed,
				},
				PlayerRole: m.role,
			})
		}
	case "r":
		if m.world.Local.Destroyed {
			m.send(protocol.MsgPlayerRespawn, protocol.PlayerRespawnPayload{
				PlayerRole: m.role,
			})
		}
	}
	return m, nil
}

func (m *Model) tryMove(dir grid.Direction) {
	if !m.world.TryMove(dir) {
		return
	}
	dx, dy := dir.Delta()
	m.send(protocol.MsgPlayerMove, protocol.PlayerMovePayload{
		Direction:  dir,
		Delta:      grid.Cell{X: dx, Y: dy},
		PlayerRole: m.role,
	})
}

// --- Tick handlers ---

func (m Model) handleFrame() (tea.Model, tea.Cmd) {
	if m.screen != ScreenPlaying || m.world == nil {
		// Drop the frame loop; game-ready restarts it.
		return m, nil
	}
	if m.paused {
		return m, frameCmd()
	}

	for _, report := range m.world.Advance() {
		switch r := report.(type) {
		case game.BulletExpired:
			m.send(protocol.MsgBulletDestroy, protocol.BulletDestroyPayload{
				BulletID:   r.BulletID,
				PlayerRole: m.role,
			})
		case game.BulletHit:
			m.send(protocol.MsgBulletTankCollision, protocol.BulletTankCollisionPayload{
				BulletID:       r.BulletID,
				TargetPlayerID: r.TargetID,
				PlayerRole:     m.role,
			})
		}
	}
	return m, frameCmd()
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.toast != "" && time.Now().After(m.toastUntil) {
		m.toast = ""
	}
	if m.client != nil && time.Since(m.lastPing) > pingPeriod {
		m.lastPing = time.Now()
		m.send(protocol.MsgPing, nil)
	}
	return m, tickCmd()
}

// --- Helpers ---

func (m *Model) showToast(text string) {
	m.toast = text
	m.toastUntil = time.Now().Add(toastTTL)
}

func (m Model) send(t protocol.MessageType, payload interface{}) {
	if m.client == nil {
		return
	}
	m.client.Send(protocol.Envelope{Type: t, Payload: payload})
}

// --- View ---

func (m Model) View() string {
	if m.disconnected {
		return m.renderCentered("Disconnected from server.\nPress Ctrl+C to exit.")
	}

	var content string
	switch m.screen {
	case ScreenMenu:
		content = RenderMenu()
	case ScreenJoinEntry:
		content = RenderJoinEntry(m.pinInput)
	case ScreenLobby:
		content = RenderLobby(m.pin, m.players, m.status, m.role)
	case ScreenPlaying:
		content = m.renderPlaying()
	}

	if m.toast != "" {
		content += "\n" + toastStyle.Render(m.toast)
	}
	return m.renderCentered(content)
}

func (m Model) renderCentered(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) renderPlaying() string {
	if m.world == nil {
		return "Loading..."
	}

	board := RenderBoard(m.world)
	info := RenderInfo(m.pin, m.role, m.world)

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(22).Render(info),
		lipgloss.NewStyle().Padding(0, 2).Render(board),
	)

	if m.paused {
		main = lipgloss.JoinVertical(lipgloss.Center, main,
			pausedStyle.Render("-- PAUSED --  press P to resume"))
	}
	return main
}

// FormatPIN spaces out a room PIN for display.
func FormatPIN(pin string) string {
	return strings.Join(strings.Split(pin, ""), " ")
}
