package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/cmd/ledger/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

const usage = `usage: ledger [command] [flags]

commands:
  serve              run the HTTP API (default)
  migrate            apply the embedded schema and exit
  seed               install the default chart and open a fiscal year (-year)
  validate           check the configured well-known accounts
  integrity          scan posted entries now (-as-of, -json)
  enqueue-integrity  queue an integrity scan on the worker (-as-of)
  queue              print the job queue state
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}
	os.Exit(run(ctx, command, args, cfg, logger))
}

func run(ctx context.Context, command string, args []string, cfg *app.Config, logger *slog.Logger) int {
	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			return 1
		}
		return 0
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		if err := db.Migrate(pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("schema up to date")
		return 0
	case "seed":
		opts, err := cli.ParseSeedFlags(args, time.Now())
		if err != nil {
			return 2
		}
		l, pool, err := openLedger(ctx, cfg, logger, false)
		if err != nil {
			logger.Error("open ledger", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		return cli.SeedCommand(ctx, l, opts)
	case "validate", "integrity":
		l, pool, err := openLedger(ctx, cfg, logger, command == "integrity")
		if err != nil {
			logger.Error("open ledger", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		ops := cli.NewLedgerCLI(l)
		if command == "validate" {
			return ops.ValidateCommand(ctx, cli.ValidateOptions{})
		}
		opts, err := cli.ParseIntegrityFlags(args)
		if err != nil {
			return 2
		}
		return ops.IntegrityCommand(ctx, opts)
	case "enqueue-integrity", "queue":
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			return 1
		}
		defer func() { _ = jobsCLI.Close() }()
		if command == "queue" {
			return jobsCLI.QueueCommand(ctx, nil)
		}
		opts, err := cli.ParseIntegrityFlags(args)
		if err != nil {
			return 2
		}
		return jobsCLI.EnqueueIntegrityCommand(ctx, opts)
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

// openLedger connects Postgres and builds the core, checking the well-known
// accounts when validate is set.
func openLedger(ctx context.Context, cfg *app.Config, logger *slog.Logger, validate bool) (*ledger.Ledger, *pgxpool.Pool, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PGMigrate {
		if err := db.Migrate(pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	l := ledger.New(ledger.PostgresRepositories(pool), db.NewTxManager(pool), ledger.Config{
		WellKnown:      cfg.WellKnown(),
		PartyCodeWidth: cfg.PartyCodeWidth,
		Audit:          shared.NewAuditLogger(pool),
		Logger:         logger,
	})
	if !validate {
		return l, pool, nil
	}
	if err := l.Validate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("well-known accounts: %w", err)
	}
	return l, pool, nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	l, pool, err := openLedger(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		l.UseCache(cache.NewReportCache(redisClient, cfg.ReportCacheTTL, logger))
	}

	metrics := observability.NewMetrics()
	l.Hooks.Observe(metrics)
	l.Journals.Notify(metrics)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() { _ = jobClient.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accounts.NewHandler(logger, l.Accounts),
		PeriodsHandler:  periods.NewHandler(logger, l.Periods),
		JournalsHandler: journals.NewHandler(logger, l.Journals).WithIdempotency(shared.NewIdempotencyStore(pool)),
		ReportsHandler:  ledger.NewHandler(logger, l),
		JobHandler:      jobs.NewHandler(inspector, jobClient, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
