package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "siren/internal/jwt_token"
	"siren/internal/platform/config"
	"siren/internal/platform/httpserver"
	"siren/internal/platform/logger"
	platformmetrics "siren/internal/platform/metrics"
	"siren/internal/registry/auth"
	"siren/internal/registry/client"
	"siren/internal/registry/handler"
	registrymetrics "siren/internal/registry/metrics"
	"siren/internal/registry/models"
	"siren/internal/registry/service"
	"siren/internal/registry/tokencache"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	regMetrics := registrymetrics.NewWithRegisterer(reg)
	httpMetrics := platformmetrics.NewWithRegisterer(reg)

	infra, err := buildInfra(ctx, cfg, log, regMetrics)
	if err != nil {
		return err
	}
	defer infra.Close()

	authenticator := auth.New(cfg.Registry.BaseURL,
		auth.WithValidity(cfg.Registry.TokenValidity),
		auth.WithLogger(log),
		auth.WithMetrics(regMetrics),
	)
	tokens := tokencache.New(authenticator,
		models.Credentials{Username: cfg.Registry.Email, Password: cfg.Registry.Password},
		tokencache.WithStore(infra.tokenStore),
		tokencache.WithAuthTimeout(cfg.Registry.AuthTimeout),
		tokencache.WithLogger(log),
		tokencache.WithMetrics(regMetrics),
	)
	registryClient := client.New(cfg.Registry.BaseURL,
		client.WithTimeout(cfg.Registry.Timeout),
		client.WithRetry(cfg.Registry.MaxRetries, cfg.Registry.RetryDelay),
		client.WithRateLimit(cfg.Registry.RateLimit, cfg.Registry.RateBurst),
		client.WithLogger(log),
		client.WithMetrics(regMetrics),
	)
	svc, err := service.New(tokens, registryClient, infra.records,
		service.WithAuditPublisher(infra.auditor),
		service.WithAuditReader(infra.auditReader),
		service.WithTransactor(infra.transactor),
		service.WithLogger(log),
		service.WithMetrics(regMetrics),
	)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	registryHandler := handler.New(svc, log, httpMetrics, jwtService.Middleware(),
		handler.WithAdminToken(cfg.Server.AdminAPIToken),
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
	)

	router := chi.NewRouter()
	registryHandler.Register(router)
	router.Get("/healthz", infra.healthHandler)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	log.Info("starting siren",
		"addr", cfg.Server.Addr,
		"registry", cfg.Registry.BaseURL,
		"token_store", infra.tokenStoreKind,
		"record_store", infra.recordStoreKind,
		"audit_sink", infra.auditSinkKind,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Server.Addr, router), cfg.Server.ShutdownTimeout, log)
}
