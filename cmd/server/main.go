package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	httpadapter "lumen/internal/adapters/http"
	pg "lumen/internal/adapters/postgres"
	"lumen/internal/adapters/summarizer"
	"lumen/internal/config"
	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/ports"
	"lumen/internal/services/crm"
	"lumen/internal/services/dashboard"
	"lumen/internal/services/reports"
	"lumen/internal/workers/reportrunner"
)

func main() {
	createTenant := flag.String("create-tenant", "", "provision a tenant with this name, print its id and exit")
	issueToken := flag.String("issue-token", "", "print a bearer token for this tenant id and exit")
	tokenUser := flag.String("token-user", "console", "subject of the issued token")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of the issued token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	l, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Dir: cfg.Log.Dir, Component: "server"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if *issueToken != "" {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required to issue tokens")
		}
		token, err := httpadapter.NewJWTResolver(cfg.JWTSecret, "lumen").Issue(*issueToken, *tokenUser, *tokenTTL)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pg.Connect(ctx, cfg.DatabaseURL, 0)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	if cfg.AutoMigrate || *createTenant != "" {
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	if *createTenant != "" {
		id := uuid.NewString()
		t := domain.Tenant{ID: id, Name: *createTenant, Timezone: cfg.Timezone}
		if err := db.CreateTenant(ctx, t); err != nil {
			log.Fatalf("create tenant: %v", err)
		}
		fmt.Println(id)
		return
	}

	if err := run(ctx, cfg, db, l); err != nil {
		l.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newSummarizer(cfg config.Config, l *slog.Logger) ports.Summarizer {
	if cfg.SummarizerURL == "" {
		l.Info("using local summarizer")
		return summarizer.NewLocal()
	}
	l.Info("using remote summarizer", "url", cfg.SummarizerURL)
	return summarizer.NewHTTP(cfg.SummarizerURL, cfg.SummarizerAPIKey)
}

func run(ctx context.Context, cfg config.Config, db *pg.DB, l *slog.Logger) error {
	sum := newSummarizer(cfg, l)
	dashboards := dashboard.New(db, sum, dashboard.Policy{
		UrgentWithinDays: cfg.UrgentWithinDays,
		Forecast:         cfg.ForecastPolicy,
		Location:         cfg.Location(),
	}, l)

	var jobs ports.JobRepository
	if cfg.ReportWorkers > 0 {
		jobs = db
	}
	reportSvc := reports.New(dashboards, sum, db, reports.Options{Jobs: jobs, Timeout: cfg.ReportTimeout, Logger: l})

	srv := httpadapter.New(httpadapter.Deps{
		Dashboards:     dashboards,
		Reports:        reportSvc,
		CRM:            crm.New(db, l),
		Auth:           httpadapter.NewJWTResolver(cfg.JWTSecret, "lumen"),
		Health:         db,
		RequestTimeout: cfg.ReportTimeout + 10*time.Second,
		Logger:         l,
	})

	if jobs != nil {
		if n, err := db.RequeueStale(ctx, 2*cfg.ReportTimeout); err != nil {
			l.Warn("requeue stale report jobs", "error", err)
		} else if n > 0 {
			l.Info("requeued stale report jobs", "count", n)
		}
		l.Info("report workers starting", "count", cfg.ReportWorkers)
	}
	// Closed immediately when REPORT_WORKERS is 0.
	workersDone := reportrunner.Run(ctx, db, reportSvc, cfg.ReportWorkers, 500*time.Millisecond, l)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	l.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)

	select {
	case <-ctx.Done():
		l.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		l.Warn("http shutdown", "error", err)
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		l.Warn("report workers did not stop in time")
	}
	return nil
}
