package main

import (
	"cmp"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/STTM-NSU/mt5-sync/internal/api"
	"github.com/STTM-NSU/mt5-sync/internal/config"
	"github.com/STTM-NSU/mt5-sync/internal/credentials"
	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/postgres"
	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/STTM-NSU/mt5-sync/internal/server"
	"github.com/STTM-NSU/mt5-sync/internal/snapshot"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
	"github.com/STTM-NSU/mt5-sync/internal/syncer"
	"github.com/joho/godotenv"
)

const (
	_cfgFilePath = "./configs/mt5-sync.yaml"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(cmp.Or(os.Getenv("MT5_SYNC_CONFIG"), _cfgFilePath))
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pgConfig := postgres.NewConfigFromEnv().Setup()
	zapLogger.Debugf("trying to connect to db with: %s", pgConfig)
	db, err := postgres.NewDB(pgConfig)
	if err != nil {
		zapLogger.Fatalf("%s: can't connect to db", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		zapLogger.Fatalf("%s: can't migrate db", err)
	}

	store := storage.New(db)
	resolver := credentials.NewResolver(store)

	dialer := mt5.NewWebDialer(cfg.Remote.GatewayURL, cfg.Remote.RateLimitPerMinute, zapLogger.With("component", "mt5"))
	manager := mt5.NewManager(dialer, resolver, cfg.Remote, zapLogger.With("component", "manager"))

	svc := syncer.NewService(
		snapshot.NewFetcher(manager, cfg.Sync.DealChunk, zapLogger.With("component", "snapshot")),
		reconcile.NewReconciler(store, zapLogger.With("component", "reconcile")),
		store,
		manager,
		cfg.Sync,
		zapLogger.With("component", "syncer"),
	)

	scheduler := syncer.NewScheduler(ctx, zapLogger)
	if err := syncer.Register(scheduler, svc, cfg.Sync); err != nil {
		zapLogger.Fatalf("%s: can't register sync jobs", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(svc, store, store, resolver, zapLogger.With("component", "api"))
	httpServer := server.NewHTTPServer(ctx, cfg.Server.Port, cfg.Server.ShutdownTimeout, api.NewRouter(handler))

	zapLogger.Infof("listening on %s", httpServer.Addr())
	if err := httpServer.Run(ctx); err != nil {
		zapLogger.Errorf("%s: http server stopped", err)
	}
}
