package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gigwire/gigwire/internal/conversations"
	"github.com/gigwire/gigwire/internal/tui/ui"
)

// ConversationList is the main conversation list view: one row per
// conversation with name, job, last message preview, time, unread count and
// a badge for locally queued messages.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	convs   []conversations.Conversation
	pending map[string]int
	filter  conversations.Filter
	search  string
}

// NewConversationList creates the conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table:   table,
		theme:   theme,
		pending: make(map[string]int),
		filter:  conversations.FilterActive,
	}
	cl.render()
	return cl
}

// Update refreshes the list with new data and queue badges.
func (cl *ConversationList) Update(convs []conversations.Conversation, pending map[string]int) {
	cl.convs = convs
	if pending == nil {
		pending = make(map[string]int)
	}
	cl.pending = pending
	cl.render()
}

// SetFilter records the active tab for the title and re-renders.
func (cl *ConversationList) SetFilter(f conversations.Filter) {
	cl.filter = f
	cl.search = ""
	cl.render()
}

// SetSearch records an active search query for the title.
func (cl *ConversationList) SetSearch(query string) {
	cl.search = query
	cl.render()
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" JOB", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	for i, c := range cl.convs {
		row := i + 1

		name := c.DisplayName()
		if n := cl.pending[c.ID]; n > 0 {
			name = fmt.Sprintf("%s [yellow][%d queued][-]", tview.Escape(sanitizeForTerminal(name)), n)
		} else {
			name = tview.Escape(sanitizeForTerminal(name))
		}

		unread := ""
		nameColor := cl.theme.FgColor
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf("%d", c.UnreadCount)
			nameColor = cl.theme.UnreadColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(c.Job.Title))).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(c.LastMessage))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.LastMessageAt)).SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, tview.NewTableCell(unread).SetExpansion(0).SetTextColor(cl.theme.UnreadColor).SetAlign(tview.AlignRight))
	}

	cl.SetTitle(cl.title())
}

func (cl *ConversationList) title() string {
	if cl.search != "" {
		return fmt.Sprintf(" Conversations (%d) search: %s ", len(cl.convs), cl.search)
	}
	return fmt.Sprintf(" Conversations [%s] (%d) ", strings.ToUpper(string(cl.filter)), len(cl.convs))
}

// SelectedConversation returns the ID of the selected row, or empty.
func (cl *ConversationList) SelectedConversation() string {
	row, _ := cl.GetSelection()
	idx := row - 1 // header row
	if idx < 0 || idx >= len(cl.convs) {
		return ""
	}
	return cl.convs[idx].ID
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
