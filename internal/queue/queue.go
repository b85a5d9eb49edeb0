package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
)

// StorageKey is the well-known key the serialized queue lives under.
const StorageKey = "outbox/v1"

// schemaVersion is bumped when the serialized message shape changes.
const schemaVersion = 1

var (
	// ErrEmptyText is returned when a text message has an empty body.
	ErrEmptyText = errors.New("queue: empty text on non-image message")
	// ErrMissingImage is returned when an image message has no image URI.
	ErrMissingImage = errors.New("queue: image message without image URI")
)

type payload struct {
	Version  int       `json:"version"`
	Messages []Message `json:"messages"`
}

// Queue is the durable, ordered store of not-yet-delivered outgoing
// messages. Every mutation is a read-modify-write of the whole serialized
// list against the backend; the internal mutex makes that safe on a
// multi-threaded runtime.
type Queue struct {
	mu      sync.Mutex
	backend Backend
	bus     *bus.Bus
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates a queue over the given storage backend. bus may be nil.
func New(backend Backend, b *bus.Bus, logger *zap.Logger) *Queue {
	return &Queue{
		backend: backend,
		bus:     b,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// load reads and decodes the current list. Callers hold q.mu.
func (q *Queue) load() ([]Message, error) {
	data, err := q.backend.Load()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return p.Messages, nil
}

// store encodes and writes the full list. Callers hold q.mu.
func (q *Queue) store(msgs []Message) error {
	data, err := json.Marshal(payload{Version: schemaVersion, Messages: msgs})
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.backend.Store(data); err != nil {
		return fmt.Errorf("store queue: %w", err)
	}
	return nil
}

// All returns every queued message in insertion order, oldest first. A
// storage read error is logged and yields an empty slice, never an error.
func (q *Queue) All() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, err := q.load()
	if err != nil {
		if q.logger != nil {
			q.logger.Error("failed to read offline queue", zap.Error(err))
		}
		return nil
	}
	return msgs
}

// Enqueue appends a new message with a fresh local ID, pending status and
// zero retries. Storage write errors propagate so the UI can warn that the
// message may not be queued.
func (q *Queue) Enqueue(d Draft) (*Message, error) {
	if d.Kind == "" {
		d.Kind = KindText
	}
	if d.Text == "" && d.Kind != KindImage {
		return nil, ErrEmptyText
	}
	if d.Kind == KindImage && d.ImageURI == "" {
		return nil, ErrMissingImage
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, err := q.load()
	if err != nil {
		return nil, err
	}

	msg := Message{
		ID:             q.newID(),
		ConversationID: d.ConversationID,
		Text:           d.Text,
		Kind:           d.Kind,
		ImageURI:       d.ImageURI,
		Timestamp:      q.nextTimestamp(msgs),
		RetryCount:     0,
		Status:         StatusPending,
	}
	msgs = append(msgs, msg)

	if err := q.store(msgs); err != nil {
		return nil, err
	}

	if q.bus != nil {
		q.bus.Publish(bus.Event{
			Kind:      bus.KindQueueEnqueued,
			Timestamp: time.Now(),
			Payload:   msg,
		})
	}
	return &msg, nil
}

// nextTimestamp returns a creation time that is monotonic within the queue
// even if the wall clock steps backwards.
func (q *Queue) nextTimestamp(msgs []Message) int64 {
	ts := q.now().UnixMilli()
	if n := len(msgs); n > 0 && msgs[n-1].Timestamp >= ts {
		ts = msgs[n-1].Timestamp + 1
	}
	return ts
}

// Remove deletes a message by ID. Removing an absent ID is a no-op.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, err := q.load()
	if err != nil {
		return err
	}

	kept := msgs[:0]
	found := false
	for _, m := range msgs {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return nil
	}
	return q.store(kept)
}

// Update merges patch fields into the entry with the given ID. Updating an
// absent ID is a no-op.
func (q *Queue) Update(id string, patch Patch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, err := q.load()
	if err != nil {
		return err
	}

	found := false
	for i := range msgs {
		if msgs[i].ID != id {
			continue
		}
		found = true
		if patch.Text != nil {
			msgs[i].Text = *patch.Text
		}
		if patch.Status != nil {
			msgs[i].Status = *patch.Status
		}
		if patch.RetryCount != nil {
			msgs[i].RetryCount = *patch.RetryCount
		}
		break
	}
	if !found {
		return nil
	}
	return q.store(msgs)
}

// Pending returns the pending messages for one conversation in insertion
// order. The UI renders these as "sending" placeholders inline with
// confirmed messages. Like All, read errors yield an empty slice.
func (q *Queue) Pending(conversationID string) []Message {
	var pending []Message
	for _, m := range q.All() {
		if m.Status == StatusPending && m.ConversationID == conversationID {
			pending = append(pending, m)
		}
	}
	return pending
}

// PendingAll returns pending messages across all conversations in insertion
// order. The drain processor works from this snapshot.
func (q *Queue) PendingAll() []Message {
	var pending []Message
	for _, m := range q.All() {
		if m.Status == StatusPending {
			pending = append(pending, m)
		}
	}
	return pending
}

// ReleaseSending returns messages stuck in sending state to pending and
// reports how many were released. A persisted sending status can only mean
// a delivery was interrupted mid-flight (crash, kill); the drain runs one
// pass at a time, so at drain start any sending entry is stale. Releasing
// risks at worst a duplicate send, which the server deduplicates by client
// message ID.
func (q *Queue) ReleaseSending() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, err := q.load()
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range msgs {
		if msgs[i].Status == StatusSending {
			msgs[i].Status = StatusPending
			released++
		}
	}
	if released == 0 {
		return 0, nil
	}
	return released, q.store(msgs)
}

// Failed returns terminally failed messages in insertion order.
func (q *Queue) Failed() []Message {
	var failed []Message
	for _, m := range q.All() {
		if m.Status == StatusFailed {
			failed = append(failed, m)
		}
	}
	return failed
}

// Retry moves a failed message back to pending with a reset retry count so
// the next drain picks it up. No-op if the ID is absent or not failed.
func (q *Queue) Retry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, err := q.load()
	if err != nil {
		return err
	}
	for i := range msgs {
		if msgs[i].ID == id && msgs[i].Status == StatusFailed {
			msgs[i].Status = StatusPending
			msgs[i].RetryCount = 0
			return q.store(msgs)
		}
	}
	return nil
}

// Clear drops every entry. Used for user-initiated reset and profile logout.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store(nil)
}
