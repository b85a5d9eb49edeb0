package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/gigwire/gigwire/internal/conn"
	"github.com/gigwire/gigwire/internal/tui/ui"
)

// Banner is the one-line connectivity notice above the conversation list.
// It is empty while connected, so Height reports zero and the layout
// collapses the row.
type Banner struct {
	*tview.TextView
	theme  *ui.Theme
	state  conn.State
	queued int
}

// NewBanner creates the connectivity banner.
func NewBanner(theme *ui.Theme) *Banner {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBackgroundColor(theme.OfflineBannerBg)
	tv.SetTextColor(theme.OfflineBannerFg)

	return &Banner{TextView: tv, theme: theme, state: conn.Connecting}
}

// SetState updates the banner for a connection state and current queue depth.
func (b *Banner) SetState(s conn.State, queued int) {
	b.state = s
	b.queued = queued
	b.render()
}

// Height returns the rows the banner needs: zero when connected.
func (b *Banner) Height() int {
	if b.state == conn.Connected {
		return 0
	}
	return 1
}

func (b *Banner) render() {
	b.Clear()
	switch b.state {
	case conn.Connecting:
		_, _ = fmt.Fprint(b, "Connecting...")
	case conn.Disconnected:
		msg := "Offline - messages will be sent when reconnected"
		if b.queued > 0 {
			msg = fmt.Sprintf("Offline - %d message(s) queued, will send when reconnected", b.queued)
		}
		_, _ = fmt.Fprint(b, msg)
	}
}
