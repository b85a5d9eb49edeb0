package model

import (
	"context"
	"sync"
	"time"

	"github.com/gigwire/gigwire/internal/conn"
	"github.com/gigwire/gigwire/internal/conversations"
	"github.com/gigwire/gigwire/internal/drain"
	"github.com/gigwire/gigwire/internal/netmon"
	"github.com/gigwire/gigwire/internal/queue"
)

// ViewModel holds the UI-facing state: the current filter tab, the
// conversation snapshot for that tab, and queue counters. All sends go
// through the offline queue; when the network is up a drain follows
// immediately, so delivery order never depends on which path a message
// took.
type ViewModel struct {
	mu sync.RWMutex

	readModel *conversations.ReadModel
	queue     *queue.Queue
	drainer   *drain.Drainer
	monitor   *netmon.Monitor
	machine   *conn.Machine

	Filter        conversations.Filter
	Conversations []conversations.Conversation
	SearchQuery   string
	Flash         Flash
}

// NewViewModel creates a view model over the application services.
func NewViewModel(rm *conversations.ReadModel, q *queue.Queue, d *drain.Drainer, m *netmon.Monitor, sm *conn.Machine) *ViewModel {
	return &ViewModel{
		readModel: rm,
		queue:     q,
		drainer:   d,
		monitor:   m,
		machine:   sm,
		Filter:    conversations.FilterActive,
	}
}

// LoadConversations refreshes the snapshot for the current tab, or the
// search results when a query is active.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	vm.mu.RLock()
	query := vm.SearchQuery
	filter := vm.Filter
	vm.mu.RUnlock()

	if query != "" {
		results := vm.readModel.Search(query)
		vm.mu.Lock()
		vm.Conversations = results
		vm.mu.Unlock()
		return nil
	}

	resp, err := vm.readModel.Fetch(ctx, filter)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.Conversations = resp.Conversations
	vm.mu.Unlock()
	return nil
}

// SetFilter switches the active tab and clears any search.
func (vm *ViewModel) SetFilter(f conversations.Filter) {
	vm.mu.Lock()
	vm.Filter = f
	vm.SearchQuery = ""
	vm.mu.Unlock()
}

// NextFilter cycles to the next tab.
func (vm *ViewModel) NextFilter() conversations.Filter {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i, f := range conversations.Filters {
		if f == vm.Filter {
			vm.Filter = conversations.Filters[(i+1)%len(conversations.Filters)]
			break
		}
	}
	vm.SearchQuery = ""
	return vm.Filter
}

// SetSearch stores a search query; empty clears it.
func (vm *ViewModel) SetSearch(query string) {
	vm.mu.Lock()
	vm.SearchQuery = query
	vm.mu.Unlock()
}

// GetConversations returns a snapshot of the current list.
func (vm *ViewModel) GetConversations() []conversations.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Conversations
}

// GetFilter returns the active tab.
func (vm *ViewModel) GetFilter() conversations.Filter {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Filter
}

// SendText queues a text message for the conversation. When the network is
// up the queue drains immediately; when it is down the message waits for
// the reconnect drain.
func (vm *ViewModel) SendText(ctx context.Context, conversationID, text string) error {
	_, err := vm.queue.Enqueue(queue.Draft{ConversationID: conversationID, Text: text})
	if err != nil {
		return err
	}
	if vm.monitor.IsOnline() {
		go vm.drainer.Drain(ctx)
		vm.Flash.Set("Sending...", 2*time.Second)
	} else {
		vm.Flash.Set("Queued - will send when back online", 3*time.Second)
	}
	return nil
}

// RetryFailed requeues every failed message and triggers a drain.
func (vm *ViewModel) RetryFailed(ctx context.Context) int {
	failed := vm.queue.Failed()
	for _, msg := range failed {
		if err := vm.queue.Retry(msg.ID); err != nil {
			vm.Flash.SetError("Retry failed: "+err.Error(), 5*time.Second)
			return 0
		}
	}
	if len(failed) > 0 {
		go vm.drainer.Drain(ctx)
	}
	return len(failed)
}

// ToggleArchive flips the archive state of a conversation server-side.
func (vm *ViewModel) ToggleArchive(ctx context.Context, conversationID string) error {
	return vm.readModel.ToggleArchive(ctx, conversationID)
}

// PendingCounts returns queued-message counts per conversation, failed
// messages included. Drives the pending badge in the list.
func (vm *ViewModel) PendingCounts() map[string]int {
	counts := make(map[string]int)
	for _, msg := range vm.queue.All() {
		counts[msg.ConversationID]++
	}
	return counts
}

// QueueDepth returns the total number of queued messages.
func (vm *ViewModel) QueueDepth() int {
	return len(vm.queue.All())
}

// FailedCount returns the number of messages that exhausted their retries.
func (vm *ViewModel) FailedCount() int {
	return len(vm.queue.Failed())
}

// ConnState returns the connection state driving the banner.
func (vm *ViewModel) ConnState() conn.State {
	return vm.machine.Current()
}
