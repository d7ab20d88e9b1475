package api

import (
	"context"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
	"github.com/STTM-NSU/mt5-sync/internal/syncer"
)

type Syncer interface {
	SyncGroups(ctx context.Context) (syncer.GroupsResult, error)
	SyncAccounts(ctx context.Context) (syncer.AccountsResult, error)
	SyncAccount(ctx context.Context, login uint64) (model.Account, error)
	ScanAccounts(ctx context.Context, from, to uint64, workers int) (syncer.ScanResult, error)
	SyncOpenPositions(ctx context.Context, login uint64) (reconcile.Result, error)
	SyncAllOpenPositions(ctx context.Context) (*syncer.Report, error)
	SyncClosedPositions(ctx context.Context, login uint64, from, to time.Time) (reconcile.Result, error)
	SyncAllClosedPositions(ctx context.Context, window time.Duration) (*syncer.Report, error)
	Reset()
	Status() mt5.Status
	CachedGroups() []string
}

type Reader interface {
	Ping(ctx context.Context) error
	ListGroups(ctx context.Context) ([]string, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	SearchAccounts(ctx context.Context, q string) ([]model.Account, error)
	GetAccount(ctx context.Context, login uint64) (model.Account, error)
	ListOpenPositions(ctx context.Context, f storage.PositionFilter) ([]model.OpenPosition, error)
	ListClosedPositions(ctx context.Context, f storage.PositionFilter) ([]model.ClosedPosition, error)
	SymbolVolumes(ctx context.Context, f storage.PositionFilter) ([]model.SymbolVolume, error)
	LotMatrix(ctx context.Context) ([]model.LoginSymbolLot, error)
}

type Settings interface {
	CreateSetting(ctx context.Context, s model.ServerSetting) (model.ServerSetting, error)
	UpdateSetting(ctx context.Context, s model.ServerSetting) (model.ServerSetting, error)
	GetSetting(ctx context.Context, id int64) (model.ServerSetting, error)
	LatestSetting(ctx context.Context) (model.ServerSetting, error)
}

// Selector pins the settings record used for manager credentials.
type Selector interface {
	Use(id int64)
	Selected() int64
}

type Handler struct {
	svc      Syncer
	reader   Reader
	settings Settings
	selector Selector
	logger   logger.Logger
}

func NewHandler(svc Syncer, reader Reader, settings Settings, selector Selector, logger logger.Logger) *Handler {
	return &Handler{
		svc:      svc,
		reader:   reader,
		settings: settings,
		selector: selector,
		logger:   logger,
	}
}
