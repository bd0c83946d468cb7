// Package app wires all citabot subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds every subsystem
// without touching the network, Run opens the gateway and serves the ops
// listener until the context is cancelled, and Shutdown tears everything
// down in order.
//
// For testing, inject doubles via functional options (WithGateway,
// WithOpener). When an option is not provided, New creates the real
// implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/citabot/internal/clips"
	"github.com/MrWong99/citabot/internal/config"
	"github.com/MrWong99/citabot/internal/discord"
	"github.com/MrWong99/citabot/internal/discord/commands"
	"github.com/MrWong99/citabot/internal/health"
	"github.com/MrWong99/citabot/internal/observe"
	"github.com/MrWong99/citabot/internal/playback"
	"github.com/MrWong99/citabot/internal/quote"
	"github.com/MrWong99/citabot/internal/resilience"
	"github.com/MrWong99/citabot/pkg/audio"
	"github.com/MrWong99/citabot/pkg/audio/ffmpeg"
)

// opsShutdownTimeout bounds the graceful stop of the ops listener.
const opsShutdownTimeout = 5 * time.Second

// Gateway is the chat platform connection. *discord.Bot satisfies it.
type Gateway interface {
	Open() error
	Close() error
	Connected() bool
	GuildID() string
	API() discord.API
	VoiceStates() discord.VoiceStates
	Platform() audio.Platform
	OnReady(fn discord.ReadyFunc)
}

var _ Gateway = (*discord.Bot)(nil)

// App owns all subsystem lifetimes.
type App struct {
	cfg      *config.Config
	version  string
	metrics  *observe.Metrics
	provider *observe.Provider

	// Subsystems, initialised in New.
	gateway   Gateway
	opener    audio.Opener
	router    *discord.Router
	members   *discord.Members
	history   quote.Source
	store     *quote.Store
	inventory *clips.Inventory
	player    *playback.Manager
	ops       http.Handler

	// watcher is started by Run when sounds.watch is set.
	mu      sync.Mutex
	watcher *clips.Watcher

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithGateway injects a gateway instead of creating a Discord bot.
func WithGateway(g Gateway) Option {
	return func(a *App) { a.gateway = g }
}

// WithOpener injects a clip decoder instead of the ffmpeg one.
func WithOpener(o audio.Opener) Option {
	return func(a *App) { a.opener = o }
}

// WithMetrics records into m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithProvider serves p's Prometheus registry on /metrics.
func WithProvider(p *observe.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithVersion reports version on the health endpoints.
func WithVersion(version string) Option {
	return func(a *App) { a.version = version }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It does not connect
// to the gateway; call [App.Run].
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Gateway + router ──────────────────────────────────────────────
	a.router = discord.NewRouter(cfg.Discord.CommandPrefix, a.metrics)
	if a.gateway == nil {
		bot, err := discord.New(discord.Config{
			Token:   cfg.Discord.Token,
			GuildID: cfg.Discord.GuildID,
			Prefix:  cfg.Discord.CommandPrefix,
		}, a.router)
		if err != nil {
			return nil, fmt.Errorf("app: init gateway: %w", err)
		}
		a.gateway = bot
	}
	api := a.gateway.API()

	// ── 2. Knowledge store ───────────────────────────────────────────────
	a.members = discord.NewMembers(api, a.gateway.VoiceStates(), a.gateway.GuildID, cfg.Discord.MemberCacheTTL)
	a.history = resilience.NewSource(
		discord.NewHistory(api, a.gateway.GuildID,
			cfg.Discord.SourceCategory, cfg.Discord.SourceChannel, cfg.Discord.HistoryLimit),
		resilience.NewBreaker(resilience.BreakerConfig{Name: "quote-history"}),
	)
	a.store = quote.NewStore(quote.NewParser(a.members), quote.WithMetrics(a.metrics))

	// ── 3. Clips + playback ──────────────────────────────────────────────
	a.inventory = clips.NewInventory(cfg.Sounds.Dir, cfg.Sounds.Extension)
	if a.opener == nil {
		a.opener = &ffmpeg.Opener{Binary: cfg.Sounds.FFmpegPath}
	}
	a.player = playback.NewManager(playback.Config{
		Platform: resilience.NewPlatform(a.gateway.Platform(), resilience.NewBreaker(resilience.BreakerConfig{
			Name:         "voice",
			MaxFailures:  cfg.Playback.BreakerFailures,
			ResetTimeout: cfg.Playback.BreakerReset,
		})),
		Voice:          a.members,
		Clips:          a.inventory,
		Opener:         a.opener,
		ConnectTimeout: cfg.Playback.ConnectTimeout,
		Metrics:        a.metrics,
	})

	// ── 4. Commands ──────────────────────────────────────────────────────
	commands.NewMenu(
		commands.NewQuoteCommands(a.store, a.history),
		commands.NewSoundCommands(a.inventory, a.player),
		commands.NewMemberCommands(a.members, cfg.Members.ZenRole),
	).Register(a.router)
	a.gateway.OnReady(a.handleReady)

	// ── 5. Ops endpoints ─────────────────────────────────────────────────
	a.ops = a.buildOps()

	return a, nil
}

func (a *App) buildOps() http.Handler {
	h := health.New(
		health.WithVersion(a.version),
		health.WithCheckers(
			health.Ready("gateway", a.gateway.Connected, "gateway session not open"),
			health.Ready("quotes", func() bool { return !a.store.LoadedAt().IsZero() }, "knowledge base not loaded"),
		),
	)
	mux := http.NewServeMux()
	h.Register(mux)
	if a.provider != nil {
		mux.Handle("GET /metrics", a.provider.MetricsHandler())
	}
	return observe.Middleware(a.metrics)(mux)
}

// Router returns the command router.
func (a *App) Router() *discord.Router { return a.router }

// Store returns the knowledge store.
func (a *App) Store() *quote.Store { return a.store }

// OpsHandler returns the handler served on server.listen_addr.
func (a *App) OpsHandler() http.Handler { return a.ops }

// handleReady performs the startup reload of quotes and clips.
func (a *App) handleReady(ctx context.Context, guildID string) {
	ctx = observe.WithGuild(ctx, guildID)
	log := observe.Logger(ctx)

	n, err := a.store.Reload(ctx, a.history)
	if err != nil {
		log.Error("app: failed to load quotes", "err", err)
	} else {
		log.Info("quotes loaded", "count", n)
	}

	start := time.Now()
	n, err = a.inventory.Reload()
	a.metrics.RecordReload(ctx, "clips", time.Since(start), err)
	if err != nil {
		log.Warn("app: failed to load clips", "dir", a.inventory.Dir(), "err", err)
		return
	}
	log.Info("clips loaded", "count", n, "dir", a.inventory.Dir())
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run opens the gateway and blocks until ctx is cancelled, serving the ops
// listener meanwhile. It returns ctx's error once stopped, or the first
// listener failure.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Sounds.Watch {
		w, err := clips.NewWatcher(ctx, a.inventory, clips.WithOnReload(func(n int, err error) {
			a.metrics.RecordReload(ctx, "clips", 0, err)
			if err != nil {
				slog.Warn("app: clip reload failed", "err", err)
				return
			}
			slog.Info("clips reloaded", "count", n)
		}))
		if err != nil {
			return fmt.Errorf("app: watch clips: %w", err)
		}
		a.mu.Lock()
		a.watcher = w
		a.mu.Unlock()
	}

	if err := a.gateway.Open(); err != nil {
		return fmt.Errorf("app: open gateway: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Server.ListenAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           a.ops,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("ops listener started", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: ops listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), opsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	slog.Info("app running", "prefix", a.router.Prefix())
	<-gctx.Done()
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown ends active playback, stops the clip watcher and closes the
// gateway. It is safe to call more than once; only the first call acts.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if err := a.player.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: stop playback: %w", err))
		}

		a.mu.Lock()
		w := a.watcher
		a.mu.Unlock()
		if w != nil {
			w.Stop()
		}

		if err := a.gateway.Close(); err != nil {
			errs = append(errs, err)
		}

		slog.Info("shutdown complete")
	})
	return errors.Join(errs...)
}
