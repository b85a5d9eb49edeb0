package conversations

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
)

// SnapshotKey is the well-known key the last full conversation list is
// persisted under, so a cold offline start still has something to show.
const SnapshotKey = "conversations/v1"

// DefaultTTL is how long a cached bucket is considered fresh.
const DefaultTTL = 30 * time.Second

// API is the server surface the read-model consumes. Implemented by the
// marketplace client.
type API interface {
	ListConversations(ctx context.Context, f Filter) (*ConversationsResponse, error)
	ToggleArchive(ctx context.Context, conversationID string) error
}

// Snapshot persists the serialized list across restarts. Satisfied by
// store.Blob; nil disables persistence.
type Snapshot interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// Options configures a ReadModel.
type Options struct {
	// BaseURL qualifies relative avatar paths. Empty disables rewriting.
	BaseURL string
	// TTL overrides DefaultTTL when positive.
	TTL time.Duration
	// Snapshot persists the "all" bucket; may be nil.
	Snapshot Snapshot
	Bus      *bus.Bus
	Logger   *zap.Logger
}

// ReadModel fetches, caches, filters and normalizes the conversation list.
// Buckets are cached per filter with stale-while-revalidate semantics: a
// stale hit returns the cached value immediately and refreshes in the
// background.
type ReadModel struct {
	api      API
	baseURL  string
	ttl      time.Duration
	snapshot Snapshot
	bus      *bus.Bus
	logger   *zap.Logger

	now func() time.Time

	mu         sync.Mutex
	buckets    map[Filter]*bucket
	refreshing map[Filter]bool
}

type bucket struct {
	resp      *ConversationsResponse
	fetchedAt time.Time
}

// New creates a read-model over the given API. If a persisted snapshot
// exists it seeds the "all" bucket as stale data.
func New(api API, opts Options) *ReadModel {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rm := &ReadModel{
		api:        api,
		baseURL:    opts.BaseURL,
		ttl:        ttl,
		snapshot:   opts.Snapshot,
		bus:        opts.Bus,
		logger:     logger,
		now:        time.Now,
		buckets:    make(map[Filter]*bucket),
		refreshing: make(map[Filter]bool),
	}
	rm.seedFromSnapshot()
	return rm
}

func (rm *ReadModel) seedFromSnapshot() {
	if rm.snapshot == nil {
		return
	}
	data, err := rm.snapshot.Load()
	if err != nil {
		rm.logger.Warn("failed to load conversation snapshot", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}
	var resp ConversationsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		rm.logger.Warn("failed to decode conversation snapshot", zap.Error(err))
		return
	}
	// Zero fetchedAt marks the seed permanently stale: it is served once
	// and revalidated immediately.
	rm.buckets[FilterAll] = &bucket{resp: &resp}
}

// Fetch returns the conversation list for a filter. Fresh cache hits return
// immediately; stale hits return the cached value and revalidate in the
// background; misses fetch synchronously. A failed fetch never clears
// cached data.
func (rm *ReadModel) Fetch(ctx context.Context, f Filter) (*ConversationsResponse, error) {
	rm.mu.Lock()
	b := rm.buckets[f]
	if b != nil {
		stale := rm.now().Sub(b.fetchedAt) >= rm.ttl
		resp := b.resp
		if stale && !rm.refreshing[f] {
			rm.refreshing[f] = true
			go rm.revalidate(f)
		}
		rm.mu.Unlock()
		return resp, nil
	}
	rm.mu.Unlock()

	return rm.Refresh(ctx, f)
}

// Refresh forces a synchronous revalidation of one bucket. Called on app
// focus and screen mount, and used by Fetch for cache misses.
func (rm *ReadModel) Refresh(ctx context.Context, f Filter) (*ConversationsResponse, error) {
	resp, err := rm.api.ListConversations(ctx, f)
	if err != nil {
		rm.logger.Warn("conversation fetch failed", zap.Error(err), zap.String("filter", string(f)))
		return nil, err
	}
	normalize(resp.Conversations, rm.baseURL)

	rm.mu.Lock()
	rm.buckets[f] = &bucket{resp: resp, fetchedAt: rm.now()}
	rm.mu.Unlock()

	rm.persist(f, resp)
	if rm.bus != nil {
		rm.bus.Publish(bus.Event{
			Kind:      bus.KindConversationsUpdated,
			Timestamp: time.Now(),
			Payload:   string(f),
		})
	}
	return resp, nil
}

// revalidate is the background arm of stale-while-revalidate.
func (rm *ReadModel) revalidate(f Filter) {
	defer func() {
		rm.mu.Lock()
		rm.refreshing[f] = false
		rm.mu.Unlock()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := rm.Refresh(ctx, f); err != nil {
		rm.logger.Warn("background revalidation failed", zap.Error(err), zap.String("filter", string(f)))
	}
}

func (rm *ReadModel) persist(f Filter, resp *ConversationsResponse) {
	if f != FilterAll || rm.snapshot == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err == nil {
		err = rm.snapshot.Store(data)
	}
	if err != nil {
		rm.logger.Warn("failed to persist conversation snapshot", zap.Error(err))
	}
}

// Cached returns the cached bucket without fetching, or nil.
func (rm *ReadModel) Cached(f Filter) *ConversationsResponse {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if b := rm.buckets[f]; b != nil {
		return b.resp
	}
	return nil
}

// Search matches the query case-insensitively against the other
// participant's name, every team member's name, and the job title, over the
// cached "all" bucket. An empty query returns nothing; the caller falls
// back to the filtered list.
func (rm *ReadModel) Search(query string) []Conversation {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	all := rm.Cached(FilterAll)
	if all == nil {
		return nil
	}

	q := strings.ToLower(query)
	var out []Conversation
	for _, c := range all.Conversations {
		if matches(&c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c *Conversation, q string) bool {
	if strings.Contains(strings.ToLower(c.Job.Title), q) {
		return true
	}
	switch c.Type {
	case TypeOneOnOne:
		return c.Other != nil && strings.Contains(strings.ToLower(c.Other.Name), q)
	case TypeTeamGroup:
		for _, m := range c.Team {
			if strings.Contains(strings.ToLower(m.Name), q) {
				return true
			}
		}
	}
	return false
}

// ToggleArchive flips a conversation's archived flag server-side. Archive
// status affects membership of every filter, so success invalidates all
// cached buckets.
func (rm *ReadModel) ToggleArchive(ctx context.Context, conversationID string) error {
	if err := rm.api.ToggleArchive(ctx, conversationID); err != nil {
		return err
	}
	rm.mu.Lock()
	rm.buckets = make(map[Filter]*bucket)
	rm.mu.Unlock()
	return nil
}
