package reconcile

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/metrics"
	"github.com/STTM-NSU/mt5-sync/internal/model"
)

type Store interface {
	EnsureAccount(ctx context.Context, login uint64) error
	OpenPositionIDs(ctx context.Context, login uint64) ([]uint64, error)
	UpsertOpenPosition(ctx context.Context, p model.OpenPosition) (model.WriteResult, error)
	DeleteOpenPositions(ctx context.Context, login uint64, ids []uint64) (int64, error)
	UpsertClosedPosition(ctx context.Context, p model.ClosedPosition) (model.WriteResult, error)
}

type Reconciler struct {
	store  Store
	locks  *keyedLock
	logger logger.Logger
}

func NewReconciler(store Store, logger logger.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		locks:  newKeyedLock(),
		logger: logger,
	}
}

func writeOutcome(w model.WriteResult) Outcome {
	switch w {
	case model.WriteInserted:
		return OutcomeInserted
	case model.WriteUpdated:
		return OutcomeUpdated
	default:
		return OutcomeUnchanged
	}
}

func (r *Reconciler) record(res *Result, o RecordOutcome) {
	res.add(o)
	metrics.ReconciledRecords.WithLabelValues(string(res.Kind), string(o.Outcome)).Inc()
}

// ReconcileOpen makes the stored open set of login equal to snapshot.
// Rows missing from snapshot are deleted in one statement.
func (r *Reconciler) ReconcileOpen(ctx context.Context, login uint64, snapshot []model.PositionRecord) (Result, error) {
	unlock := r.locks.lock(lockKey{kind: KindOpen, login: login})
	defer unlock()

	res := Result{Login: login, Kind: KindOpen, Fetched: len(snapshot)}

	if err := r.store.EnsureAccount(ctx, login); err != nil {
		return res, fmt.Errorf("%w: can't ensure account", err)
	}

	local, err := r.store.OpenPositionIDs(ctx, login)
	if err != nil {
		return res, fmt.Errorf("%w: can't read local open set", err)
	}

	present := make(map[uint64]struct{}, len(snapshot))
	for _, rec := range snapshot {
		if rec.Login == 0 {
			rec.Login = login
		}
		if rec.Login != login {
			r.record(&res, RecordOutcome{PositionID: rec.PositionID, Outcome: OutcomeRejected,
				Reason: fmt.Sprintf("belongs to login %d", rec.Login)})
			continue
		}
		if err := rec.Validate(); err != nil {
			r.logger.Warnf("%s: rejected open position %d of %d", err, rec.PositionID, login)
			r.record(&res, RecordOutcome{PositionID: rec.PositionID, Outcome: OutcomeRejected, Reason: err.Error()})
			continue
		}

		present[rec.PositionID] = struct{}{}

		w, err := r.store.UpsertOpenPosition(ctx, rec.ToOpenPosition())
		if err != nil {
			r.logger.Errorf("%s: can't store open position %d of %d", err, rec.PositionID, login)
			r.record(&res, RecordOutcome{PositionID: rec.PositionID, Outcome: OutcomeFailed, Reason: err.Error()})
			continue
		}
		r.record(&res, RecordOutcome{PositionID: rec.PositionID, Outcome: writeOutcome(w)})
	}

	stale := make([]uint64, 0)
	for _, id := range local {
		if _, ok := present[id]; !ok {
			stale = append(stale, id)
		}
	}

	deleted, err := r.store.DeleteOpenPositions(ctx, login, stale)
	if err != nil {
		return res, fmt.Errorf("%w: can't delete closed positions from open set", err)
	}
	res.Deleted = int(deleted)
	metrics.DeletedPositions.Add(float64(deleted))

	return res, nil
}

// ReconcileClosed upserts closed positions derived from closing deals. Nothing is deleted.
// Several deals of one position collapse into the last one seen.
func (r *Reconciler) ReconcileClosed(ctx context.Context, login uint64, deals []model.DealRecord) (Result, error) {
	unlock := r.locks.lock(lockKey{kind: KindClosed, login: login})
	defer unlock()

	res := Result{Login: login, Kind: KindClosed, Fetched: len(deals)}

	if err := r.store.EnsureAccount(ctx, login); err != nil {
		return res, fmt.Errorf("%w: can't ensure account", err)
	}

	order := make([]uint64, 0, len(deals))
	latest := make(map[uint64]model.DealRecord, len(deals))
	for _, d := range deals {
		if d.Login == 0 {
			d.Login = login
		}
		if err := d.Validate(); err != nil {
			r.logger.Warnf("%s: rejected deal %d of %d", err, d.DealID, login)
			r.record(&res, RecordOutcome{PositionID: d.PositionID, Outcome: OutcomeRejected, Reason: err.Error()})
			continue
		}
		if _, ok := latest[d.PositionID]; !ok {
			order = append(order, d.PositionID)
		}
		latest[d.PositionID] = d
	}

	for _, id := range order {
		w, err := r.store.UpsertClosedPosition(ctx, latest[id].ToClosedPosition())
		if err != nil {
			r.logger.Errorf("%s: can't store closed position %d of %d", err, id, login)
			r.record(&res, RecordOutcome{PositionID: id, Outcome: OutcomeFailed, Reason: err.Error()})
			continue
		}
		r.record(&res, RecordOutcome{PositionID: id, Outcome: writeOutcome(w)})
	}

	return res, nil
}
