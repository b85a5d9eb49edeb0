package netmon

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
)

// ProbeFunc reports whether the device can currently reach the network.
// It must not panic; returning false is the only failure mode.
type ProbeFunc func(ctx context.Context) bool

// Monitor turns the platform's reachability signal into a two-state
// online/offline stream with edge-triggered callbacks. Repeated identical
// probe results collapse: onOnline never fires twice without an intervening
// onOffline, and vice versa.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	bus      *bus.Bus
	logger   *zap.Logger

	mu     sync.Mutex
	online bool
	known  bool
	subs   map[int]subscriber
	next   int
	cancel context.CancelFunc
}

type subscriber struct {
	onOnline  func()
	onOffline func()
}

// New creates a monitor polling the given probe. bus may be nil.
func New(probe ProbeFunc, interval time.Duration, b *bus.Bus, logger *zap.Logger) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		bus:      b,
		logger:   logger,
		subs:     make(map[int]subscriber),
	}
}

// IsOnline returns the last probe result. Before the first probe completes
// the monitor fails closed and reports offline.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known && m.online
}

// Subscribe registers transition callbacks fired exactly once per change.
// Returns an unsubscribe function.
func (m *Monitor) Subscribe(onOnline, onOffline func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = subscriber{onOnline: onOnline, onOffline: onOffline}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Start probes immediately and then on every tick until the context is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	go func() {
		m.Check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Check(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts polling.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Check runs one probe cycle and applies edge detection. Safe to call
// directly for a manual refresh.
func (m *Monitor) Check(ctx context.Context) {
	result := m.safeProbe(ctx)

	m.mu.Lock()
	if m.known && m.online == result {
		m.mu.Unlock()
		return
	}
	m.known = true
	m.online = result
	subs := make([]subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	kind := bus.KindNetOffline
	if result {
		kind = bus.KindNetOnline
	}
	if m.logger != nil {
		m.logger.Info("connectivity changed", zap.Bool("online", result))
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now()})
	}
	for _, s := range subs {
		if result {
			if s.onOnline != nil {
				s.onOnline()
			}
		} else if s.onOffline != nil {
			s.onOffline()
		}
	}
}

// safeProbe runs the probe, failing closed if it panics.
func (m *Monitor) safeProbe(ctx context.Context) (online bool) {
	defer func() {
		if recover() != nil {
			online = false
		}
	}()
	return m.probe(ctx)
}

// DefaultProbe checks both the link layer and actual internet reachability:
// a non-loopback interface must be up with an address, and the probe URL
// must answer an HTTP request within the timeout. A device attached to a
// dead access point fails the second check and reports offline.
func DefaultProbe(probeURL string, timeout time.Duration) ProbeFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) bool {
		if !linkUp() {
			return false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		// Any HTTP exchange proves reachability; the status code is the
		// server's business.
		return true
	}
}

func linkUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
