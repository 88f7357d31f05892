package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	auditservice "hrcore/internal/audit"
	audithandler "hrcore/internal/audit/handler"
	httpapi "hrcore/internal/http"
	jwttoken "hrcore/internal/jwt_token"
	"hrcore/internal/platform/config"
	"hrcore/internal/platform/httpserver"
	"hrcore/internal/platform/logger"
	"hrcore/internal/platform/metrics"
	salaryhandler "hrcore/internal/salary/handler"
	salaryservice "hrcore/internal/salary/service"
	salarystore "hrcore/internal/salary/store"
	"hrcore/pkg/platform/audit/emitter"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("hrcore exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)

	backend, err := openAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	policy, err := loadRedactionPolicy(cfg.Audit.PolicyFile)
	if err != nil {
		return err
	}
	auditEmitter := emitter.New(backend.store,
		emitter.WithPolicy(policy),
		emitter.WithLogger(log),
		emitter.WithMetrics(emitter.NewMetrics(reg)),
	)

	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using the development key")
	}
	jwtValidator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience),
	)

	salaries := salaryservice.New(salarystore.NewInMemoryStore(), auditEmitter,
		salaryservice.WithLogger(log),
		salaryservice.WithMetrics(httpMetrics),
	)
	auditLogs := auditservice.NewService(backend.store, log)

	router := httpapi.NewRouter(httpapi.Options{
		Logger:         log,
		Metrics:        httpMetrics,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         backend.health,
		Handlers: []httpapi.Registrar{
			salaryhandler.New(salaries, auditEmitter, log, httpMetrics, jwtValidator),
			audithandler.New(auditLogs, log, httpMetrics, jwtValidator),
		},
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting hrcore", "addr", cfg.Server.Addr, "audit_store", cfg.Audit.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
