package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	tahttp "github.com/tariffsheriff/tradeassist/internal/adapter/http"
	tamcp "github.com/tariffsheriff/tradeassist/internal/adapter/mcp"
	"github.com/tariffsheriff/tradeassist/internal/adapter/openai"
	otelad "github.com/tariffsheriff/tradeassist/internal/adapter/otel"
	"github.com/tariffsheriff/tradeassist/internal/adapter/ristretto"
	"github.com/tariffsheriff/tradeassist/internal/config"
	"github.com/tariffsheriff/tradeassist/internal/logger"
	"github.com/tariffsheriff/tradeassist/internal/ratelimit"
	"github.com/tariffsheriff/tradeassist/internal/resilience"
	"github.com/tariffsheriff/tradeassist/internal/service"
	"github.com/tariffsheriff/tradeassist/internal/tools"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"model", cfg.OpenAI.Model,
		"cache_size_mb", cfg.Cache.MaxSizeMB,
		"mcp_enabled", cfg.MCP.Enabled,
	)

	shutdownTracer := otelad.InitTracer(cfg.Logging.Service)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	metrics, err := otelad.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	cacheBackend, err := ristretto.New(cfg.Cache.MaxSizeMB * 1024 * 1024)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheBackend.Close()

	limiter := ratelimit.NewLimiter(cfg.Rate.PerMinute, cfg.Rate.PerHour)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	// --- Tools ---

	health := resilience.NewGroup(cfg.Orchestrator.ToolMaxFailures, cfg.Orchestrator.ToolCooldown)
	registry := service.NewRegistry(health, log)
	if err := registry.Register(tools.NewTariffLookup()); err != nil {
		return fmt.Errorf("register tariff_lookup: %w", err)
	}
	if err := registry.Register(tools.NewHSCodeFinder()); err != nil {
		return fmt.Errorf("register hs_code_finder: %w", err)
	}
	if err := registry.Register(tools.NewAgreementLookup()); err != nil {
		return fmt.Errorf("register agreement_lookup: %w", err)
	}
	if err := registry.Register(tools.NewComplianceAnalysis()); err != nil {
		return fmt.Errorf("register compliance_analysis: %w", err)
	}
	log.Info("tools registered", "tools", registry.Names())

	// --- Services ---

	gateway := openai.NewClient(cfg.OpenAI)
	store := service.NewStore(cfg.Conversation)
	respCache := service.NewResponseCache(cacheBackend, cfg.Cache.TTL)
	breakers := resilience.NewGroup(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	orch := service.NewOrchestrator(
		cfg.Orchestrator,
		cfg.Conversation,
		gateway,
		registry,
		store,
		respCache,
		limiter,
		breakers,
		service.NewFallback(),
		metrics,
		log,
	)

	// --- HTTP ---

	handlers := tahttp.NewHandlers(orch, store, registry, log)

	r := chi.NewRouter()
	r.Use(tahttp.RequestID)
	r.Use(tahttp.Logger)
	r.Use(tahttp.SecurityHeaders)
	r.Use(tahttp.CORS(cfg.Server.CORSOrigin))
	r.Use(otelad.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Orchestrator.Deadline + 5*time.Second))

	tahttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- MCP ---

	var mcpSrv *tamcp.Server
	if cfg.MCP.Enabled {
		mcpSrv = tamcp.NewServer(tamcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "tradeassist",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, tamcp.ServerDeps{
			Asker:       orch,
			ToolLister:  registry,
			StatsReader: store,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		log.Info("mcp server started", "addr", cfg.MCP.Addr)
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mcpSrv != nil {
		if err := mcpSrv.Stop(shutdownCtx); err != nil {
			log.Warn("mcp shutdown", "error", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}
