package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/STTM-NSU/mt5-sync/internal/tools"
)

// ensureKnown pulls the account profile first when login has never been stored.
func (s *Service) ensureKnown(ctx context.Context, login uint64) error {
	exists, err := s.store.AccountExists(ctx, login)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := s.SyncAccount(ctx, login); err != nil {
		return fmt.Errorf("%w: can't sync unknown account %d", err, login)
	}
	return nil
}

func (s *Service) syncOpen(ctx context.Context, login uint64) (reconcile.Result, error) {
	v, err := s.coalesced(ctx, flightKey(string(reconcile.KindOpen), login), func(ctx context.Context) (any, error) {
		records, err := s.fetcher.OpenPositions(ctx, login)
		if err != nil {
			s.checkConnection(err)
			return reconcile.Result{}, fmt.Errorf("%w: can't fetch open positions", err)
		}
		return s.reconciler.ReconcileOpen(ctx, login, records)
	})
	if err != nil {
		return reconcile.Result{}, err
	}
	return v.(reconcile.Result), nil
}

// SyncOpenPositions refreshes the open set of a single account.
func (s *Service) SyncOpenPositions(ctx context.Context, login uint64) (reconcile.Result, error) {
	if err := s.ensureKnown(ctx, login); err != nil {
		return reconcile.Result{}, err
	}
	return s.syncOpen(ctx, login)
}

func (s *Service) SyncAllOpenPositions(ctx context.Context) (*Report, error) {
	v, err := s.coalesced(ctx, JobOpen, func(ctx context.Context) (any, error) {
		return s.sweep(ctx, JobOpen, s.syncOpen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (s *Service) syncClosed(ctx context.Context, login uint64, from, to time.Time) (reconcile.Result, error) {
	key := fmt.Sprintf("%s:%d:%d:%d", reconcile.KindClosed, login, from.Unix(), to.Unix())
	v, err := s.coalesced(ctx, key, func(ctx context.Context) (any, error) {
		deals, filtered, err := s.fetcher.ClosingDeals(ctx, login, from, to)
		if err != nil {
			s.checkConnection(err)
			return reconcile.Result{}, fmt.Errorf("%w: can't fetch closing deals", err)
		}
		res, err := s.reconciler.ReconcileClosed(ctx, login, deals)
		res.Fetched += filtered
		return res, err
	})
	if err != nil {
		return reconcile.Result{}, err
	}
	return v.(reconcile.Result), nil
}

// SyncClosedPositions upserts closed positions of one account over [from, to).
// A zero window falls back to the configured trailing window.
func (s *Service) SyncClosedPositions(ctx context.Context, login uint64, from, to time.Time) (reconcile.Result, error) {
	if from.IsZero() || to.IsZero() {
		w := tools.TrailingWindow(time.Now().UTC(), s.cfg.ClosedWindow)
		from, to = w.From, w.To
	}
	if !from.Before(to) {
		return reconcile.Result{}, errors.New("empty closed positions window")
	}
	if err := s.ensureKnown(ctx, login); err != nil {
		return reconcile.Result{}, err
	}
	return s.syncClosed(ctx, login, from, to)
}

// SyncAllClosedPositions re-reads the trailing window for every known account.
func (s *Service) SyncAllClosedPositions(ctx context.Context, window time.Duration) (*Report, error) {
	if window <= 0 {
		window = s.cfg.ClosedWindow
	}
	w := tools.TrailingWindow(time.Now().UTC(), window)
	return s.SyncClosedRange(ctx, w.From, w.To)
}

// SyncClosedRange sweeps every known account over an explicit window.
func (s *Service) SyncClosedRange(ctx context.Context, from, to time.Time) (*Report, error) {
	key := fmt.Sprintf("%s:%d:%d", JobClosed, from.Unix(), to.Unix())
	v, err := s.coalesced(ctx, key, func(ctx context.Context) (any, error) {
		return s.sweep(ctx, JobClosed, func(ctx context.Context, login uint64) (reconcile.Result, error) {
			return s.syncClosed(ctx, login, from, to)
		})
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}
