package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/STTM-NSU/mt5-sync/internal/config"
	"github.com/STTM-NSU/mt5-sync/internal/credentials"
	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/postgres"
	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/STTM-NSU/mt5-sync/internal/snapshot"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
	"github.com/STTM-NSU/mt5-sync/internal/syncer"
	"github.com/joho/godotenv"
)

// Re-reads closed positions over an explicit window:
//
//	go run ./cmd/backfill -from 2025-01-01 -to 2025-02-01 -logins 1001,1002
func main() {
	cfgPath := flag.String("config", "./configs/mt5-sync.yaml", "config file")
	fromFlag := flag.String("from", "", "window start, RFC3339 or YYYY-MM-DD")
	toFlag := flag.String("to", "", "window end, RFC3339 or YYYY-MM-DD")
	loginsFlag := flag.String("logins", "", "comma separated logins, empty for every known account")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("%s: can't load config", err)
	}

	zapLogger, loggerSync, err := logger.NewZapLogger(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	if envErr != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	bf, err := config.ParseBackfillArgs(*fromFlag, *toFlag, *loginsFlag)
	if err != nil {
		zapLogger.Fatalf("%s: invalid backfill arguments", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pgConfig := postgres.NewConfigFromEnv().Setup()
	db, err := postgres.NewDB(pgConfig)
	if err != nil {
		zapLogger.Fatalf("%s: can't connect to db", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		zapLogger.Fatalf("%s: can't migrate db", err)
	}

	store := storage.New(db)
	manager := mt5.NewManager(
		mt5.NewWebDialer(cfg.Remote.GatewayURL, cfg.Remote.RateLimitPerMinute, zapLogger),
		credentials.NewResolver(store),
		cfg.Remote,
		zapLogger,
	)
	svc := syncer.NewService(
		snapshot.NewFetcher(manager, cfg.Sync.DealChunk, zapLogger),
		reconcile.NewReconciler(store, zapLogger),
		store,
		manager,
		cfg.Sync,
		zapLogger,
	)

	zapLogger.Infof("backfilling closed positions from %s to %s", bf.From, bf.To)

	if len(bf.Logins) == 0 {
		report, err := svc.SyncClosedRange(ctx, bf.From, bf.To)
		if err != nil {
			zapLogger.Fatalf("%s: backfill failed", err)
		}
		zapLogger.Infow("backfill finished",
			"report", report.ID,
			"accounts", report.Accounts,
			"stored", report.Stored(),
			"rejected", report.Rejected,
			"failures", len(report.Failures),
		)
		return
	}

	for _, login := range bf.Logins {
		res, err := svc.SyncClosedPositions(ctx, login, bf.From, bf.To)
		if err != nil {
			zapLogger.Errorf("%s: can't backfill %d", err, login)
			continue
		}
		zapLogger.Infow("account backfilled",
			"login", login,
			"inserted", res.Inserted,
			"updated", res.Updated,
			"rejected", res.Rejected,
		)
	}
}
