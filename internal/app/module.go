// Package app composes the client: store, reconciler, search, backend,
// and the TUI shell, wired through fx with lifecycle hooks.
package app

import (
	"context"
	"time"

	"github.com/talc-dev/talc/internal/backend"
	"github.com/talc-dev/talc/internal/backend/local"
	"github.com/talc-dev/talc/internal/bus"
	"github.com/talc-dev/talc/internal/config"
	"github.com/talc-dev/talc/internal/logging"
	"github.com/talc-dev/talc/internal/loop"
	"github.com/talc-dev/talc/internal/nav"
	"github.com/talc-dev/talc/internal/search"
	"github.com/talc-dev/talc/internal/store"
	intsync "github.com/talc-dev/talc/internal/sync"
	"github.com/talc-dev/talc/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved startup configuration.
type Params struct {
	ConfigPath string
}

// Module returns the fx module composing all providers and lifecycle
// hooks.
func Module(p Params) fx.Option {
	return fx.Module("talc",
		fx.Supply(p),
		fx.NopLogger,
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLoop,
			provideStore,
			provideNavState,
			provideIndex,
			provideBackend,
			provideReconciler,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLoop() *loop.Loop {
	return loop.New()
}

func provideStore(logger *zap.Logger) *store.Store {
	return store.New(logger)
}

func provideNavState() *nav.State {
	return nav.NewState()
}

func provideIndex(st *store.Store) *search.Index {
	return search.New(st)
}

func provideBackend(cfg *config.Config, logger *zap.Logger) (*local.Client, backend.Client) {
	c := local.New(logger)
	if cfg.DemoMode {
		seedDemo(c)
	}
	return c, c
}

func provideReconciler(st *store.Store, client backend.Client, l *loop.Loop, b *bus.Bus, navState *nav.State, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(st, client, l, b, navState, logger)
}

func provideApp(cfg *config.Config, st *store.Store, ix *search.Index, navState *nav.State, client backend.Client, rec *intsync.Reconciler, l *loop.Loop, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(st, ix, navState, client, rec, l, b, logger, cfg.MessageLimit)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, l *loop.Loop, st *store.Store, rec *intsync.Reconciler, lb *local.Client, b *bus.Bus, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())

	// Store changes fan out to the rendering layer via the bus; the
	// subscription is registered before any mutation can happen.
	st.Subscribe(func() {
		b.PublishKind(bus.KindStoreChanged, nil)
	})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go l.Run(runCtx)
			rec.Start(runCtx)
			rec.InitialLoad(runCtx)
			lb.Connect()
			if cfg.DemoMode {
				lb.StartDemo(runCtx, 7*time.Second)
			}
			logger.Info("client started", zap.Bool("demo", cfg.DemoMode))
			return nil
		},
		OnStop: func(_ context.Context) error {
			rec.Stop()
			cancel()
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

func seedDemo(c *local.Client) {
	now := time.Now().UnixMilli()
	snaps := []backend.ConversationSnapshot{
		{ID: "c-alice", Name: "Alice", Kind: "direct", LastActivity: now - 2*60_000, Preview: "see you then!", Unread: 2},
		{ID: "c-gophers", Name: "Gophers", Kind: "group", LastActivity: now - 10*60_000, Preview: "anyone tried 1.26 yet?", Pinned: true},
		{ID: "c-news", Name: "Release Notes", Kind: "channel", LastActivity: now - 45*60_000, Preview: "v2.3.0 is out"},
		{ID: "c-bob", Name: "Bob", Kind: "direct", LastActivity: now - 3*3_600_000, Preview: "thanks!", Archived: true},
	}
	msgs := map[string][]backend.MessageSnapshot{
		"c-alice": {
			{ID: "m1", Seq: 1, Sender: "Alice", Body: "lunch tomorrow?", SentAt: now - 5*60_000},
			{ID: "m2", Seq: 2, Sender: "me", Body: "sure, 12:30?", SentAt: now - 4*60_000, FromMe: true},
			{ID: "m3", Seq: 3, Sender: "Alice", Body: "see you then!", SentAt: now - 2*60_000},
		},
		"c-gophers": {
			{ID: "m4", Seq: 4, Sender: "Carol", Body: "anyone tried 1.26 yet?", SentAt: now - 10*60_000},
		},
		"c-news": {
			{ID: "m5", Seq: 5, Sender: "Release Notes", Body: "v2.3.0 is out", SentAt: now - 45*60_000},
		},
		"c-bob": {
			{ID: "m6", Seq: 6, Sender: "Bob", Body: "thanks!", SentAt: now - 3*3_600_000},
		},
	}
	c.Seed(snaps, msgs)
}
