package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/farm-selector/internal/api"
	"github.com/mohammed-shakir/farm-selector/internal/cache/redisstore"
	"github.com/mohammed-shakir/farm-selector/internal/core/config"
	"github.com/mohammed-shakir/farm-selector/internal/core/health"
	"github.com/mohammed-shakir/farm-selector/internal/core/httpclient"
	"github.com/mohammed-shakir/farm-selector/internal/core/observability"
	"github.com/mohammed-shakir/farm-selector/internal/core/server"
	"github.com/mohammed-shakir/farm-selector/internal/events"
	"github.com/mohammed-shakir/farm-selector/internal/logger"
	"github.com/mohammed-shakir/farm-selector/internal/navigation"
	"github.com/mohammed-shakir/farm-selector/internal/selection"
	"github.com/mohammed-shakir/farm-selector/internal/sessions"
	"github.com/mohammed-shakir/farm-selector/internal/submitter"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	addrFlag := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	backendFlag := flag.String("backend", "", "backend base URL (overrides BACKEND_URL)")
	storeFlag := flag.String("handoff-store", "", "handoff store: memory|redis (overrides HANDOFF_STORE)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}
	if *backendFlag != "" {
		cfg.BackendURL = strings.TrimRight(strings.TrimSpace(*backendFlag), "/")
	}
	if s := strings.ToLower(strings.TrimSpace(*storeFlag)); s == config.HandoffRedis || s == config.HandoffMemory {
		cfg.HandoffStore = s
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "selector",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting selector",
		"addr", cfg.Addr,
		"version", Version,
		"backend", cfg.BackendURL,
		"handoff_store", cfg.HandoffStore,
		"events", cfg.Events.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := submitter.New(appLog, httpclient.NewOutbound(cfg.SubmitTimeout), cfg.BackendURL, cfg.SubmitTimeout)
	if err != nil {
		appLog.Error("failed to initialize submitter", "err", err)
		return 1
	}

	deps := map[string]health.Pinger{}
	store, closeStore, err := handoffStore(ctx, cfg, deps)
	if err != nil {
		appLog.Error("handoff store setup failed", "err", err)
		return 1
	}
	defer closeStore()
	nav := navigation.NewHandoffNavigator(store, cfg.HandoffTTL)

	observers := selection.Observers{
		selection.ObserverFunc(func(_ context.Context, o selection.Outcome) {
			observability.IncSubmission(o.Result)
		}),
	}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue, cfg.H3Res, appLog)
		if err != nil {
			appLog.Error("kafka publisher setup failed", "err", err, "brokers", cfg.Events.Brokers)
			return 1
		}
		defer func() { _ = pub.Close() }()
		observers = append(observers, pub)
	}

	reg, err := sessions.New(cfg.SessionCap, func(id, stateName string) (*selection.Session, error) {
		return selection.New(selection.Options{
			ID:        id,
			StateName: stateName,
			Area:      cfg.SubmitArea,
			Submitter: sub,
			Navigator: nav,
			Observer:  observers,
			Logger:    appLog,
			CellRes:   cfg.H3Res,
		})
	}, appLog)
	if err != nil {
		appLog.Error("session registry setup failed", "err", err)
		return 1
	}
	defer reg.Close()

	handler := server.NewRouter(cfg, appLog, api.New(appLog, reg, nav), deps)
	if err := server.Run(ctx, cfg, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// handoffStore picks the store named by cfg and registers it for readiness when it has a remote dependency.
func handoffStore(ctx context.Context, cfg config.Config, deps map[string]health.Pinger) (navigation.Store, func(), error) {
	switch cfg.HandoffStore {
	case config.HandoffRedis:
		rc, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithPoolSize(cfg.Redis.PoolSize),
			redisstore.WithDialTimeout(cfg.Redis.DialTimeout),
			redisstore.WithReadTimeout(cfg.Redis.IOTimeout),
			redisstore.WithWriteTimeout(cfg.Redis.IOTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		store := navigation.NewRedisStore(rc)
		deps["redis"] = store
		return store, func() { _ = rc.Close() }, nil
	default:
		return navigation.NewMemoryStore(cfg.SessionCap, cfg.HandoffTTL), func() {}, nil
	}
}
