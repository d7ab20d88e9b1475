package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/tools"
)

// OpenPositions returns the full current open set of one account.
func (f *Fetcher) OpenPositions(ctx context.Context, login uint64) ([]model.PositionRecord, error) {
	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: can't acquire session", err)
	}

	records, err := session.Positions(ctx, login)
	if err != nil {
		return nil, &TransientFetchError{Login: login, Err: err}
	}

	for i := range records {
		if records[i].Login == 0 {
			records[i].Login = login
		}
	}
	return records, nil
}

// ClosingDeals returns the closing deals of one account over [from, to), queried in chunks.
// The second value counts deals that were dropped as non-closing or malformed.
func (f *Fetcher) ClosingDeals(ctx context.Context, login uint64, from, to time.Time) ([]model.DealRecord, int, error) {
	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: can't acquire session", err)
	}

	var (
		deals    []model.DealRecord
		filtered int
	)
	for _, w := range tools.SplitWindow(from, to, f.dealChunk) {
		chunk, err := session.Deals(ctx, login, w.From, w.To)
		if err != nil {
			return nil, 0, &TransientFetchError{Login: login, Err: err}
		}
		for _, d := range chunk {
			if d.Login == 0 {
				d.Login = login
			}
			if !d.IsClosing() {
				filtered++
				continue
			}
			deals = append(deals, d)
		}
	}

	if filtered > 0 {
		f.logger.Debugf("login %d: filtered %d non-closing deals", login, filtered)
	}
	return deals, filtered, nil
}
