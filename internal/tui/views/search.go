package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// SearchBar is the inline search input shown above the conversation list.
// Queries match participant names, team member names and job titles.
type SearchBar struct {
	*tview.InputField
	onQuery func(query string)
	onClose func()
}

// NewSearchBar creates the search input.
func NewSearchBar() *SearchBar {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)

	sb := &SearchBar{InputField: input}

	input.SetChangedFunc(func(text string) {
		if sb.onQuery != nil {
			sb.onQuery(text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape && sb.onClose != nil {
			sb.SetText("")
			sb.onClose()
		}
	})

	return sb
}

// SetOnQuery sets the callback fired on every keystroke.
func (sb *SearchBar) SetOnQuery(fn func(query string)) {
	sb.onQuery = fn
}

// SetOnClose sets the callback fired when the search is dismissed.
func (sb *SearchBar) SetOnClose(fn func()) {
	sb.onClose = fn
}
