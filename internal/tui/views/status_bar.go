package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/gigwire/gigwire/internal/conn"
	"github.com/gigwire/gigwire/internal/tui/model"
)

// StatusBar displays the profile, connection state, queue depth and
// transient flash messages.
type StatusBar struct {
	*tview.TextView
	profile    string
	state      conn.State
	queued     int
	failed     int
	flash      string
	flashLevel model.Level
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, state: conn.Connecting}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetConnState updates the connection state display.
func (sb *StatusBar) SetConnState(s conn.State) {
	sb.state = s
	sb.render()
}

// SetQueue updates the queued and failed message counters.
func (sb *StatusBar) SetQueue(queued, failed int) {
	sb.queued = queued
	sb.failed = failed
	sb.render()
}

// SetFlash sets a temporary message colored by severity.
func (sb *StatusBar) SetFlash(msg string, level model.Level) {
	sb.flash = msg
	sb.flashLevel = level
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	state := string(sb.state)
	switch sb.state {
	case conn.Connected:
		state = "[green]" + state + "[-]"
	case conn.Disconnected:
		state = "[red]" + state + "[-]"
	default:
		state = "[yellow]" + state + "[-]"
	}

	queued := ""
	if sb.queued > 0 {
		queued = fmt.Sprintf(" | [yellow]%d queued[-]", sb.queued)
	}
	if sb.failed > 0 {
		queued += fmt.Sprintf(" [red]%d failed[-]", sb.failed)
	}

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s%s | %s", sb.profile, state, queued, clock)
	if sb.flash != "" {
		color := "navajowhite"
		switch sb.flashLevel {
		case model.LevelWarn:
			color = "orange"
		case model.LevelError:
			color = "orangered"
		}
		line += fmt.Sprintf(" | [%s]%s[-]", color, sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
