// Package tui is the terminal UI: the conversation list with filter tabs,
// search, a composer and the connectivity banner.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gigwire/gigwire/internal/bus"
	"github.com/gigwire/gigwire/internal/conversations"
	"github.com/gigwire/gigwire/internal/tui/keys"
	"github.com/gigwire/gigwire/internal/tui/model"
	"github.com/gigwire/gigwire/internal/tui/ui"
	"github.com/gigwire/gigwire/internal/tui/views"
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	vm        *model.ViewModel
	bus       *bus.Bus
	registry  *keys.Registry
	theme     *ui.Theme
	layout    *tview.Flex
	banner    *views.Banner
	searchBar *views.SearchBar
	list      *views.ConversationList
	composer  *views.Composer
	statusBar *views.StatusBar
	searching bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, b *bus.Bus, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		vm:        vm,
		bus:       b,
		registry:  keys.NewRegistry(),
		theme:     theme,
		banner:    views.NewBanner(theme),
		searchBar: views.NewSearchBar(),
		list:      views.NewConversationList(theme),
		composer:  views.NewComposer(),
		statusBar: views.NewStatusBar(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
	a.registry.AddGlobal("search", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:search", Visible: true,
		Handler: func() { a.showSearch() },
	})
	a.registry.AddGlobal("tab", &keys.Action{
		Key:         tcell.KeyTab,
		Description: "tab:filter", Visible: true,
		Handler: func() { a.cycleFilter() },
	})
	a.registry.AddView("list", "archive", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:archive", Visible: true,
		Handler: func() { a.toggleArchive() },
	})
	a.registry.AddView("list", "retry", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:retry failed", Visible: true,
		Handler: func() { a.retryFailed() },
	})
	for i, f := range conversations.Filters {
		filter := f
		a.registry.AddView("list", string(f), &keys.Action{
			Rune: rune('1' + i), Key: tcell.KeyRune,
			Handler: func() { a.switchFilter(filter) },
		})
	}
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(func(text string) {
		convID := a.list.SelectedConversation()
		if convID == "" {
			a.vm.Flash.SetWarn("Select a conversation first", 3*time.Second)
			a.refreshStatus()
			return
		}
		if err := a.vm.SendText(a.ctx, convID, text); err != nil {
			a.vm.Flash.SetError("Send failed: "+err.Error(), 5*time.Second)
		}
		a.refresh()
	})

	a.searchBar.SetOnQuery(func(query string) {
		a.vm.SetSearch(query)
		a.list.SetSearch(query)
		a.reload()
	})
	a.searchBar.SetOnClose(func() {
		a.hideSearch()
	})
}

func (a *App) setupLayout() {
	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.banner, 0, 0, false).
		AddItem(a.searchBar, 0, 0, false).
		AddItem(a.list, 0, 1, true).
		AddItem(a.composer, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.layout, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Text inputs own their keys, except Escape on the search bar.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer.
		if event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composer.InputField)
			return nil
		}

		if a.registry.HandleEvent("list", event) {
			return nil
		}
		return event
	})
}

func (a *App) showSearch() {
	a.searching = true
	a.layout.ResizeItem(a.searchBar, 1, 0)
	a.app.SetFocus(a.searchBar.InputField)
}

func (a *App) hideSearch() {
	a.searching = false
	a.vm.SetSearch("")
	a.list.SetFilter(a.vm.GetFilter())
	a.layout.ResizeItem(a.searchBar, 0, 0)
	a.app.SetFocus(a.list)
	a.reload()
}

func (a *App) cycleFilter() {
	f := a.vm.NextFilter()
	a.list.SetFilter(f)
	a.reload()
}

func (a *App) switchFilter(f conversations.Filter) {
	a.vm.SetFilter(f)
	a.list.SetFilter(f)
	a.reload()
}

func (a *App) toggleArchive() {
	convID := a.list.SelectedConversation()
	if convID == "" {
		return
	}
	go func() {
		if err := a.vm.ToggleArchive(a.ctx, convID); err != nil {
			a.vm.Flash.SetError("Archive failed: "+err.Error(), 5*time.Second)
		}
		a.reload()
	}()
}

func (a *App) retryFailed() {
	n := a.vm.RetryFailed(a.ctx)
	if n > 0 {
		a.vm.Flash.Set(fmt.Sprintf("Retrying %d message(s)", n), 3*time.Second)
	}
	a.refresh()
}

// reload fetches the conversation list in the background, then redraws.
func (a *App) reload() {
	go func() {
		if err := a.vm.LoadConversations(a.ctx); err != nil {
			a.vm.Flash.SetError("Load failed: "+err.Error(), 5*time.Second)
		}
		a.refresh()
	}()
}

// refresh redraws every widget from the view model. Dispatched on a
// goroutine: QueueUpdateDraw deadlocks when called from the event loop.
func (a *App) refresh() {
	go a.app.QueueUpdateDraw(func() {
		a.list.Update(a.vm.GetConversations(), a.vm.PendingCounts())
		a.refreshWidgets()
	})
}

// refreshStatus redraws the status line and banner without touching the list.
func (a *App) refreshStatus() {
	go a.app.QueueUpdateDraw(a.refreshWidgets)
}

func (a *App) refreshWidgets() {
	state := a.vm.ConnState()
	depth := a.vm.QueueDepth()
	a.banner.SetState(state, depth)
	a.layout.ResizeItem(a.banner, a.banner.Height(), 0)
	a.statusBar.SetConnState(state)
	a.statusBar.SetQueue(depth, a.vm.FailedCount())
	msg, level := a.vm.Flash.Get()
	a.statusBar.SetFlash(msg, level)
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.watchBus()
	a.startRefreshLoop()
	a.reload()
	return a.app.Run()
}

// watchBus redraws on every internal event: connectivity edges, queue
// changes, send acks and background list updates.
func (a *App) watchBus() {
	events, unsub := a.bus.Subscribe("", 64)
	go func() {
		defer unsub()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				switch ev.Kind {
				case bus.KindConversationsUpdated:
					a.reload()
				case bus.KindMessageSendAck, bus.KindMessageSendFailed, bus.KindQueueDrained:
					a.refresh()
				default:
					a.refreshStatus()
				}
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// startRefreshLoop keeps the clock and flash expiry current and picks up
// read-model revalidations.
func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.reload()
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
