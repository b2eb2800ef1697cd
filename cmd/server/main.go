package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"auditflow/internal/auth"
	sessionstore "auditflow/internal/auth/store/session"
	userstore "auditflow/internal/auth/store/user"
	"auditflow/internal/emission"
	"auditflow/internal/enforce"
	"auditflow/internal/platform/config"
	"auditflow/internal/platform/httpserver"
	"auditflow/internal/platform/logger"
	"auditflow/internal/platform/metrics"
	"auditflow/internal/platform/observability"
	platformredis "auditflow/internal/platform/redis"
	"auditflow/internal/registry"
	asyncsink "auditflow/internal/sink/async"
	kafkasink "auditflow/internal/sink/kafka"
	memorysink "auditflow/internal/sink/memory"
	multisink "auditflow/internal/sink/multi"
	postgressink "auditflow/internal/sink/postgres"
	httptransport "auditflow/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// The registry's definition-time pass runs before anything serves traffic:
// a missing or altered audit specification halts startup.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Definition-time compliance check. Rebuilt whole on every start; a
	// DefinitionError is fatal by design.
	reg := registry.New()
	reg.Add(auth.Definition())
	if err := reg.Finalize(); err != nil {
		log.Error("audit definitions rejected", "error", err)
		os.Exit(1)
	}
	bindings, _ := reg.Bindings(auth.ServiceType)

	// Audit sink chain: durable backends behind an async buffer so sink
	// latency never delays guarded operations.
	var closers []func() error
	var durable []emission.Sink
	if cfg.PostgresDSN != "" {
		store, err := postgressink.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres audit store unavailable", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
		durable = append(durable, store)
		closers = append(closers, store.Close)
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := kafkasink.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka audit publisher unavailable", "error", err)
			os.Exit(1)
		}
		durable = append(durable, pub)
		closers = append(closers, pub.Close)
	}

	var downstream emission.Sink
	switch len(durable) {
	case 0:
		log.Warn("no durable audit backend configured, events stay in memory")
		downstream = memorysink.NewStore()
	case 1:
		downstream = durable[0]
	default:
		downstream = multisink.New(durable...)
	}
	sink := asyncsink.New(downstream, cfg.AuditBuffer, log)

	m := metrics.New()
	guardOpts := []enforce.Option{enforce.WithMetrics(m)}
	if cfg.Tracing {
		guardOpts = append(guardOpts, enforce.WithSpans(observability.NewSpanManager()))
	}
	if cfg.StrictExceptionGaps {
		guardOpts = append(guardOpts, enforce.WithExceptionGapLevel(slog.LevelError))
	}
	guard := enforce.New(auth.ServiceType, bindings, sink, log, guardOpts...)

	users := userstore.NewMemoryStore()
	if err := seedDevUsers(users); err != nil {
		log.Error("seeding dev users failed", "error", err)
		os.Exit(1)
	}

	var sessions auth.SessionStore = sessionstore.NewMemoryStore()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		sessions = sessionstore.NewRedisStore(redisClient.Client)
		closers = append(closers, redisClient.Close)
	}

	tokens := auth.NewTokenService(cfg.JWTSigningKey, "auditflow")
	lockout := auth.NewLockout(5, 15*time.Minute)
	policy := map[string][]string{
		"admin.delete_user": {"admin"},
		"admin.read_audit":  {"admin", "auditor"},
	}
	service := auth.NewService(guard, users, sessions, users, tokens, lockout, cfg.TokenTTL, policy)

	handler := httptransport.NewHandler(service, log)
	router := httptransport.NewRouter(handler, tokens, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting auditflow", "addr", cfg.Addr, "types", reg.Types())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	// Drain buffered audit events before releasing backends; forwarded
	// records are never withdrawn, even on shutdown.
	if err := sink.Close(); err != nil {
		log.Error("audit sink drain failed", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

// seedDevUsers gives the in-memory store something to authenticate against.
// Production deployments plug in a real user store instead.
func seedDevUsers(users *userstore.MemoryStore) error {
	if err := users.Seed(auth.User{
		ID:       uuid.New(),
		Username: "admin",
		Roles:    []string{"admin"},
	}, "admin-dev-password"); err != nil {
		return err
	}
	return users.Seed(auth.User{
		ID:       uuid.New(),
		Username: "demo",
		Roles:    []string{"user"},
	}, "demo-dev-password")
}
