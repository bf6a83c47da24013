package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"grant-store/internal/domain/cache"
	"grant-store/internal/domain/eventbus"
	"grant-store/internal/domain/grant"
	"grant-store/internal/domain/grant/store"
	"grant-store/internal/domain/profile"
	platformconfig "grant-store/internal/platform/config"
	platformerrors "grant-store/internal/platform/errors"
	platformlogging "grant-store/internal/platform/logging"
	platformobservability "grant-store/internal/platform/observability"
	platformstorage "grant-store/internal/platform/storage"
	httptransport "grant-store/internal/transport/http"
	"grant-store/internal/transport/ws"
)

const (
	dialTimeout     = 5 * time.Second
	shutdownTimeout = 15 * time.Second
	eventWorkers    = 4
)

// Options tunes how Run locates its configuration.
type Options struct {
	ConfigPath string
	DotEnv     bool
	// Config bypasses the loader when set; it is still validated.
	Config *platformconfig.Config
	// Operator, when set and admin auth is enabled, gets a bearer token logged at start.
	Operator string
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	redis                 *redis.Client
	bus                   *eventbus.AsyncEventBus
	grantStore            store.Store
	grantService          *grant.Service
	profileService        profile.Service
	authToken             *httptransport.AuthToken
	feedHub               *ws.Hub
}

// Run loads configuration, wires the grant service and serves the admin API until ctx ends or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		if state.logger != nil {
			state.logger.ErrorTag("BOOT", "initialisation failed: %v", err)
		}
		return err
	}
	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return platformerrors.Wrap(platformerrors.KindTransport, "http:start", "failed to start http server", err)
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation graph")
	for _, step := range steps {
		logger.InfoTag("BOOT", "%s (%s)", step.Title, step.ID)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-redis",
			Title:     "Connect redis",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindStorage,
			Execute:   initRedisStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initEventBusStep,
		},
		{
			ID:        "grant:init-store",
			Title:     "Initialise grant store",
			DependsOn: []string{"storage:init-redis", "eventbus:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initGrantStoreStep,
		},
		{
			ID:        "grant:init-service",
			Title:     "Initialise grant service",
			DependsOn: []string{"grant:init-store", "observability:setup-hooks"},
			Execute:   initGrantServiceStep,
		},
		{
			ID:        "profile:init-service",
			Title:     "Initialise profile service",
			DependsOn: []string{"storage:init-redis", "logging:init-provider"},
			Execute:   initProfileStep,
		},
		{
			ID:        "transport:init-feed",
			Title:     "Initialise event feed",
			DependsOn: []string{"eventbus:init"},
			Kind:      platformerrors.KindTransport,
			Execute:   initFeedStep,
		},
		{
			ID:        "auth:init-token",
			Title:     "Initialise admin auth",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Execute:   initAuthStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader().WithDotEnv(state.opts.DotEnv).WithPath(state.opts.ConfigPath)
	if state.opts.Config != nil {
		if err := loader.Validate(state.opts.Config); err != nil {
			return err
		}
		state.config = state.opts.Config
		state.configPath = "inline"
		return nil
	}

	result, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	shutdown, err := platformobservability.Setup(ctx, platformobservability.Config{
		Enabled:       state.config.Observability.Enabled,
		SlowThreshold: state.config.Observability.SlowThreshold,
	}, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

// initRedisStep dials one client shared by the grant store and the profile cache.
func initRedisStep(ctx context.Context, state *appState) error {
	cfg := state.config
	if cfg.Store.Driver != store.DriverRedis && !(cfg.Cache.Profile.Enabled && cfg.Cache.Driver == "redis") {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	client, err := platformstorage.OpenRedis(dialCtx, platformstorage.RedisOptions{
		Addr:     cfg.Store.Redis.Addr,
		Username: cfg.Store.Redis.Username,
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-redis", "failed to connect redis at "+cfg.Store.Redis.Addr, err)
	}
	state.redis = client
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(eventWorkers)
	bus.Start()
	state.bus = bus
	return eventbus.SetupAuditHandlers(bus, state.logger)
}

func initGrantStoreStep(_ context.Context, state *appState) error {
	deps := store.Dependencies{
		OnPrune: grant.PruneNotifier(state.bus, nil),
	}
	if state.redis != nil {
		deps.Redis = state.redis
	}

	st, err := store.New(storeConfig(state.config), deps)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "grant:init-store", "failed to create grant store", err)
	}
	state.grantStore = st
	state.logger.InfoTag("STORE", "grant store ready driver=%s prefix=%q", state.config.Store.Driver, state.config.Store.KeyPrefix)
	return nil
}

func storeConfig(cfg *platformconfig.Config) store.Config {
	return store.Config{
		Driver:    cfg.Store.Driver,
		KeyPrefix: cfg.Store.KeyPrefix,
		Redis: &store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		},
		SQLite: &store.SQLiteConfig{DSN: cfg.Store.SQLite.DSN},
		Memory: &store.MemoryConfig{GCInterval: cfg.Store.Memory.GCInterval},
	}
}

func initGrantServiceStep(_ context.Context, state *appState) error {
	svc, err := grant.NewService(grant.Options{
		Store:           state.grantStore,
		Logger:          state.logger.Tagged("GRANT"),
		Events:          state.bus,
		CleanupInterval: state.config.Store.CleanupInterval,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "grant:init-service", "failed to create grant service", err)
	}
	// the service owns the store from here on
	state.grantService = svc
	state.grantStore = nil
	return nil
}

func initProfileStep(_ context.Context, state *appState) error {
	cfg := state.config.Cache
	var inner profile.Service = profile.DefaultService{}
	if !cfg.Profile.Enabled {
		state.profileService = inner
		return nil
	}

	var entries cache.Cache[profile.ActiveEntry]
	switch cfg.Driver {
	case "redis":
		c, err := cache.NewRedis[profile.ActiveEntry](state.redis, state.config.Store.KeyPrefix, cfg.Namespace, nil)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "profile:init-service", "failed to create profile cache", err)
		}
		entries = c
	default:
		entries = cache.NewMemory[profile.ActiveEntry](cfg.Size, nil)
	}

	svc, err := profile.NewCachingService(inner, entries, profile.CachingOptions{
		KeyPrefix:  cfg.Profile.KeyPrefix,
		Expiration: cfg.Profile.Expiration,
	}, state.logger.Tagged("CACHE"))
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "profile:init-service", "failed to create caching profile service", err)
	}
	state.profileService = svc
	state.logger.InfoTag("PROFILE", "profile cache ready driver=%s ttl=%s", cfg.Driver, svc.Options().Expiration)
	return nil
}

func initFeedStep(_ context.Context, state *appState) error {
	hub := ws.NewHub(state.logger)
	if err := hub.Subscribe(state.bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "transport:init-feed", "failed to subscribe event feed", err)
	}
	state.feedHub = hub
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	admin := state.config.Admin
	if !admin.Enabled {
		state.logger.WarnTag("AUTH", "admin auth disabled, the grant API is open")
		return nil
	}
	tokens, err := httptransport.NewAuthToken(admin.JWTSecret, admin.Issuer, admin.TokenTTL, nil)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "auth:init-token", "invalid admin auth settings", err)
	}
	state.authToken = tokens

	if state.opts.Operator != "" {
		token, err := tokens.GenerateToken(state.opts.Operator)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "auth:init-token", "failed to issue operator token", err)
		}
		state.logger.InfoTag("AUTH", "operator %s token: %s", state.opts.Operator, token)
	}
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (net.Addr, error) {
	cfg := state.config
	logger := state.logger

	var auth gin.HandlerFunc
	if state.authToken != nil {
		auth = httptransport.AuthMiddleware(state.authToken, logger)
	}
	router, err := httptransport.Build(httptransport.Options{
		Config:         cfg,
		Logger:         logger,
		AuthMiddleware: auth,
	})
	if err != nil {
		return nil, err
	}
	router.Engine.NoRoute(func(c *gin.Context) {
		httptransport.RespondError(c, http.StatusNotFound, "not found", gin.H{})
	})
	httptransport.NewGrantHandler(state.grantService).Register(router.Secured)
	httptransport.NewProfileHandler(state.profileService).Register(router.Secured)
	if state.feedHub != nil {
		feed := ws.NewFeed(state.feedHub, logger, ws.FeedOptions{})
		router.Secured.GET("/events", gin.WrapF(feed.Handle))
	}

	addr := net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopTimeout := cfg.Server.ShutdownTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "admin API listening on http://%s", listener.Addr())

		go func() {
			<-groupCtx.Done()
			if state.feedHub != nil {
				// hijacked websocket connections are not closed by Shutdown
				state.feedHub.CloseAll(ws.ErrFeedShutdown)
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server stopped")
			}
		}()

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return listener.Addr(), nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(shutdownTimeout):
		logger.ErrorTag("BOOT", "shutdown timed out")
		return errors.New("shutdown timed out")
	}
	return nil
}

// close releases everything in reverse order of construction.
func (s *appState) close() {
	if s.grantService != nil {
		if err := s.grantService.Close(); err != nil && s.logger != nil {
			s.logger.ErrorTag("GRANT", "grant service did not close cleanly: %v", err)
		}
	}
	if s.grantStore != nil {
		_ = s.grantStore.Close(context.Background())
	}
	if s.feedHub != nil {
		s.feedHub.CloseAll(ws.ErrFeedShutdown)
	}
	if s.bus != nil {
		s.bus.Stop()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.observabilityShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.observabilityShutdown(ctx); err != nil && s.logger != nil {
			s.logger.WarnTag("BOOT", "observability did not close cleanly: %v", err)
		}
		cancel()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
