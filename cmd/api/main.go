package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fundledger/internal/adapter/repo"
	"fundledger/internal/adapter/repo/migrations"
	"fundledger/internal/domain"
	"fundledger/internal/http/handlers"
	httpapi "fundledger/internal/http/httpapi"
	"fundledger/internal/infra"
	"fundledger/internal/ledger"
	"fundledger/internal/metrics"
	"fundledger/internal/middleware"
	"fundledger/internal/transfer"
)

func main() {
	// Optional .env
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
	logger.Info().Msg("server stopped")
}

// service is the wired API: ledger, gateway and router over one journal.
type service struct {
	ledger  *ledger.Ledger
	bank    *transfer.Bank
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
	handler http.Handler
	close   func()
}

func newService(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*service, error) {
	journal, closeJournal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &handlers.App{Logger: logger, FaucetEnabled: cfg.FaucetEnabled}
	svc := &service{close: closeJournal}
	svc.metrics = metrics.New(func() ledger.Stats { return svc.ledger.Stats() })

	opts := []ledger.Option{
		ledger.WithJournal(journal),
		ledger.WithObserver(svc.metrics),
		ledger.WithLogger(logger.With().Str("component", "ledger").Logger()),
	}
	var gateway domain.TransferGateway
	if cfg.PayoutURL != "" {
		gw, err := transfer.NewHTTPGateway(transfer.HTTPGatewayOptions{
			BaseURL: cfg.PayoutURL,
			Token:   cfg.PayoutToken,
			Timeout: cfg.PayoutTimeout,
			Logger:  logger,
		})
		if err != nil {
			closeJournal()
			return nil, err
		}
		gateway = gw
		opts = append(opts, ledger.WithPayments(transfer.Attested{Logger: logger}))
		logger.Info().Str("payout_url", cfg.PayoutURL).Msg("sweeps go to external payout service")
	} else {
		custody := cfg.Custody
		if custody == "" {
			custody = domain.RandomAddress()
		}
		svc.bank = transfer.NewBank(custody, logger)
		gateway = svc.bank
		app.Bank = svc.bank
		opts = append(opts, ledger.WithPayments(svc.bank))
		logger.Info().Str("custody", custody.String()).Msg("using in-process bank")
	}

	svc.ledger = ledger.New(gateway, opts...)
	if err := svc.ledger.Restore(ctx); err != nil {
		closeJournal()
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	app.Ledger = svc.ledger

	svc.limiter = middleware.NewRateLimiter(cfg.RateLimitPerMin, logger)
	svc.handler = httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    svc.limiter,
		Metrics:        svc.metrics,
		Logger:         logger,
	})
	return svc, nil
}

func run(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) error {
	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	go pruneLoop(ctx, svc.limiter, logger)

	server := infra.NewHTTPServer(cfg, svc.handler, logger)
	logger.Info().Str("addr", server.Addr()).Str("journal", cfg.JournalDriver).Msg("API listening")
	return server.Serve(ctx)
}

func openJournal(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (domain.Journal, func(), error) {
	switch cfg.JournalDriver {
	case infra.JournalSQLite:
		db, err := infra.OpenSQLite(ctx, cfg.SQLitePath, migrations.FS)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewSQLiteJournal(db), func() { _ = db.Close() }, nil
	case infra.JournalPostgres:
		pool, err := infra.NewDBPool(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		j := repo.NewPGJournal(infra.NewSQLRunner(pool, logger))
		if err := j.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return j, pool.Close, nil
	default:
		logger.Warn().Msg("memory journal: state is lost on restart")
		return repo.NewMemoryJournal(), func() {}, nil
	}
}

func pruneLoop(ctx context.Context, rl *middleware.RateLimiter, logger zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Prune(); n > 0 {
				logger.Debug().Int("removed", n).Msg("rate limiter pruned")
			}
		}
	}
}
