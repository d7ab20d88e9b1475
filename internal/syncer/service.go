package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/config"
	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/metrics"
	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/STTM-NSU/mt5-sync/internal/snapshot"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	JobOpen      = "open_positions"
	JobClosed    = "closed_positions"
	JobDirectory = "directory"
)

type Fetcher interface {
	Groups(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]model.Account, []snapshot.Skip, error)
	Account(ctx context.Context, login uint64) (model.Account, error)
	AccountsByRange(ctx context.Context, from, to uint64, workers int, onFound func(model.Account)) (int, error)
	OpenPositions(ctx context.Context, login uint64) ([]model.PositionRecord, error)
	ClosingDeals(ctx context.Context, login uint64, from, to time.Time) ([]model.DealRecord, int, error)
}

type Store interface {
	UpsertAccount(ctx context.Context, a model.Account) error
	AccountExists(ctx context.Context, login uint64) (bool, error)
	ListLogins(ctx context.Context) ([]uint64, error)
	InsertGroup(ctx context.Context, name string) (bool, error)
}

type Sessions interface {
	Invalidate(reason error)
	Status() mt5.Status
}

type Service struct {
	fetcher    Fetcher
	reconciler *reconcile.Reconciler
	store      Store
	sessions   Sessions
	cfg        config.SyncConfig

	flight singleflight.Group

	mu     sync.RWMutex
	groups []string

	logger logger.Logger
}

func NewService(
	fetcher Fetcher,
	reconciler *reconcile.Reconciler,
	store Store,
	sessions Sessions,
	cfg config.SyncConfig,
	logger logger.Logger,
) *Service {
	return &Service{
		fetcher:    fetcher,
		reconciler: reconciler,
		store:      store,
		sessions:   sessions,
		cfg:        cfg,
		logger:     logger,
	}
}

// checkConnection drops the shared session when err says it is broken.
func (s *Service) checkConnection(err error) {
	var connErr *mt5.ConnectionError
	if errors.As(err, &connErr) {
		s.sessions.Invalidate(err)
	}
}

// Reset forgets the session and cached remote state after a credential change.
func (s *Service) Reset() {
	s.sessions.Invalidate(errors.New("server settings changed"))

	s.mu.Lock()
	s.groups = nil
	s.mu.Unlock()
}

func (s *Service) Status() mt5.Status {
	return s.sessions.Status()
}

// CachedGroups returns the groups seen by the last successful group sync.
func (s *Service) CachedGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.groups...)
}

func flightKey(kind string, login uint64) string {
	return kind + ":" + strconv.FormatUint(login, 10)
}

// sweep runs fn for every known account with a bounded pool. Failures are tallied, never returned.
func (s *Service) sweep(ctx context.Context, job string, fn func(ctx context.Context, login uint64) (reconcile.Result, error)) (*Report, error) {
	start := time.Now()
	defer metrics.ObserveSweep(job, start)

	logins, err := s.store.ListLogins(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: can't list accounts", err)
	}

	report := newReport(job, len(logins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, login := range logins {
		g.Go(func() error {
			res, err := fn(gctx, login)
			if err != nil {
				s.logger.Errorf("%s: %s sweep failed for %d", err, job, login)
				metrics.SweepFailures.WithLabelValues(job).Inc()
				report.addFailure(login, err)
				return nil
			}
			report.addResult(res)
			return nil
		})
	}
	_ = g.Wait()

	report.finish()
	s.logger.Infow("sweep finished",
		"job", job,
		"report", report.ID,
		"accounts", report.Accounts,
		"synced", report.Synced,
		"failures", len(report.Failures),
		"deleted", report.Deleted,
		"took", time.Since(start),
	)
	return report, nil
}

// coalesced runs fn once per key for all concurrent callers. The shared run is
// detached from any single caller; a cancelled caller only stops waiting.
func (s *Service) coalesced(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		return fn(shared)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: stopped waiting for %s", ctx.Err(), key)
	case res := <-ch:
		return res.Val, res.Err
	}
}
