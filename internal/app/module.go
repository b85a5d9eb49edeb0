// Package app composes the application: one fx module wiring the profile's
// storage, the offline queue, the drain loop, the connectivity monitor and
// the marketplace client together.
package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
	"github.com/gigwire/gigwire/internal/config"
	"github.com/gigwire/gigwire/internal/conn"
	"github.com/gigwire/gigwire/internal/conversations"
	"github.com/gigwire/gigwire/internal/drain"
	"github.com/gigwire/gigwire/internal/lock"
	"github.com/gigwire/gigwire/internal/logging"
	"github.com/gigwire/gigwire/internal/marketplace"
	"github.com/gigwire/gigwire/internal/netmon"
	"github.com/gigwire/gigwire/internal/profile"
	"github.com/gigwire/gigwire/internal/queue"
	"github.com/gigwire/gigwire/internal/store"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	Console     bool // mirror logs to stderr; off when the TUI owns the terminal
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideQueue,
			provideClient,
			provideReadModel,
			provideMonitor,
			provideDrainer,
			provideRunner,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() *config.Config {
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, p.Console)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *conn.Machine {
	return conn.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideQueue(db *store.DB, b *bus.Bus, logger *zap.Logger) *queue.Queue {
	return queue.New(db.Blob(queue.StorageKey), b, logger)
}

func provideClient(cfg *config.Config, logger *zap.Logger) *marketplace.Client {
	return marketplace.New(cfg.API.BaseURL, cfg.API.Token, logger)
}

func provideReadModel(client *marketplace.Client, cfg *config.Config, db *store.DB, b *bus.Bus, logger *zap.Logger) *conversations.ReadModel {
	return conversations.New(client, conversations.Options{
		BaseURL:  cfg.API.BaseURL,
		Snapshot: db.Blob(conversations.SnapshotKey),
		Bus:      b,
		Logger:   logger,
	})
}

func provideMonitor(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *netmon.Monitor {
	probe := netmon.DefaultProbe(cfg.Net.ProbeURL, time.Duration(cfg.Net.ProbeTimeoutMillis)*time.Millisecond)
	interval := time.Duration(cfg.Net.ProbeIntervalSecs) * time.Second
	return netmon.New(probe, interval, b, logger)
}

func provideDrainer(q *queue.Queue, client *marketplace.Client, db *store.DB, b *bus.Bus, logger *zap.Logger) *drain.Drainer {
	return drain.New(q, NewSendFunc(client, db, logger), b, logger)
}

func provideRunner(d *drain.Drainer, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *drain.Runner {
	interval := time.Duration(cfg.Queue.DrainIntervalSecs) * time.Second
	return drain.NewRunner(d, b, interval, logger)
}

// NewSendFunc adapts the marketplace client to the drain loop. Transport
// failures and temporary server errors surface as errors (attempt counted,
// message retried); a permanent rejection reports false with no error so
// the message still follows the retry ladder without log noise about a
// broken network. Delivered messages land in the send log keyed by their
// client ID, which the server also uses for deduplication.
func NewSendFunc(client *marketplace.Client, db *store.DB, logger *zap.Logger) drain.SendFunc {
	return func(ctx context.Context, msg queue.Message) (bool, error) {
		serverID, err := client.SendMessage(ctx, marketplace.SendRequest{
			ClientID:       msg.ID,
			ConversationID: msg.ConversationID,
			Text:           msg.Text,
			Kind:           string(msg.Kind),
			ImageURI:       msg.ImageURI,
		})
		if err != nil {
			var se *marketplace.StatusError
			if errors.As(err, &se) && !se.Temporary() {
				logger.Warn("message rejected by server",
					zap.String("client_msg_id", msg.ID),
					zap.Int("status", se.Code))
				return false, nil
			}
			return false, err
		}
		if err := db.RecordSend(msg.ID, serverID, msg.ConversationID); err != nil {
			logger.Warn("failed to record send", zap.Error(err), zap.String("client_msg_id", msg.ID))
		}
		return true, nil
	}
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, machine *conn.Machine, monitor *netmon.Monitor, runner *drain.Runner, logger *zap.Logger) {
	var stopMonitor func()
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			stopMonitor = cancel

			// Connectivity drives the connection state machine; the drain
			// runner listens for the same online edges on the bus.
			monitor.Subscribe(func() {
				if machine.Current() == conn.Disconnected {
					_ = machine.Transition(conn.Connecting)
				}
				_ = machine.Transition(conn.Connected)
			}, func() {
				_ = machine.Transition(conn.Disconnected)
			})

			// The machine starts in Connecting; the first probe result
			// resolves it to Connected or Disconnected.
			monitor.Start(ctx)
			runner.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			runner.Stop()
			monitor.Stop()
			if stopMonitor != nil {
				stopMonitor()
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("app stopped")
			return nil
		},
	})
}
