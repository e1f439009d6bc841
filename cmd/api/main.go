package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"careflow/agreement"
	"careflow/audit"
	"careflow/db"
	"careflow/funding"
	"careflow/httpapi"
	"careflow/metrics"
	"careflow/outbox"
	"careflow/participant"
	"careflow/referral"
	"careflow/staffing"
	"careflow/workflow"
)

func main() {
	setupLogger()

	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		slog.Error("DATABASE_URL must be set")
		os.Exit(1)
	}

	slog.Info("applying migrations")
	if err := db.Migrate(connString); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		slog.Error("bootstrap database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	referralRepo := referral.NewRepository(pool)
	participantRepo := participant.NewRepository(pool)
	agreementRepo := agreement.NewRepository(pool)
	fundingRepo := funding.NewRepository(pool)
	staffingRepo := staffing.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)

	referralService := referral.NewService(pool, referralRepo)
	participantService := participant.NewService(pool, participantRepo, referralRepo)
	agreementService := agreement.NewService(pool, agreementRepo)
	fundingService := funding.NewService(fundingRepo)
	staffingService := staffing.NewService(pool, staffingRepo, nil)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := workflow.NewEngine(
		pool,
		workflow.Onboarding(),
		referralRepo,
		workflow.NewAutomations(workflow.AutomationDeps{
			Participants: participantService,
			Agreements:   agreementService,
			Funding:      fundingService,
			Staffing:     staffingService,
		}),
		auditRepo,
	).
		WithOutbox(outbox.NewWriter()).
		WithRecorder(metrics.NewWorkflow(registry))

	server := httpapi.NewServer(
		engine,
		referralService,
		participantService,
		agreementService,
		staffingService,
		auditRepo,
		[]byte(os.Getenv("CAREFLOW_JWT_SECRET")),
	)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := os.Getenv("CAREFLOW_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	slog.Info("starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
