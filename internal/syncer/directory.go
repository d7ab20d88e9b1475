package syncer

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/metrics"
	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/snapshot"
)

type GroupsResult struct {
	Groups   []string        `json:"groups"`
	Inserted int             `json:"inserted"`
	Skipped  []snapshot.Skip `json:"skipped,omitempty"`
}

type AccountsResult struct {
	Fetched int             `json:"fetched"`
	Stored  int             `json:"stored"`
	Skipped []snapshot.Skip `json:"skipped,omitempty"`
}

type ScanResult struct {
	From   uint64 `json:"from"`
	To     uint64 `json:"to"`
	Found  int    `json:"found"`
	Stored int    `json:"stored"`
	Failed int    `json:"failed"`
}

// SyncGroups mirrors the remote group list. Groups are only ever added.
func (s *Service) SyncGroups(ctx context.Context) (GroupsResult, error) {
	v, err := s.coalesced(ctx, "groups", func(ctx context.Context) (any, error) {
		groups, err := s.fetcher.Groups(ctx)
		if err != nil {
			s.checkConnection(err)
			return GroupsResult{}, fmt.Errorf("%w: can't fetch groups", err)
		}

		res := GroupsResult{Groups: groups}
		for _, g := range groups {
			inserted, err := s.store.InsertGroup(ctx, g)
			if err != nil {
				s.logger.Errorf("%s: can't store group", err)
				res.Skipped = append(res.Skipped, snapshot.Skip{Key: g, Reason: err.Error()})
				continue
			}
			if inserted {
				res.Inserted++
			}
		}

		s.mu.Lock()
		s.groups = groups
		s.mu.Unlock()

		return res, nil
	})
	if err != nil {
		return GroupsResult{}, err
	}
	return v.(GroupsResult), nil
}

// SyncAccounts overwrites every account reachable through the group list.
func (s *Service) SyncAccounts(ctx context.Context) (AccountsResult, error) {
	v, err := s.coalesced(ctx, "accounts", func(ctx context.Context) (any, error) {
		accounts, skipped, err := s.fetcher.Accounts(ctx)
		if err != nil {
			s.checkConnection(err)
			return AccountsResult{}, fmt.Errorf("%w: can't fetch accounts", err)
		}

		res := AccountsResult{Fetched: len(accounts), Skipped: skipped}
		for _, a := range accounts {
			if err := s.store.UpsertAccount(ctx, a); err != nil {
				s.logger.Errorf("%s: can't store account", err)
				res.Skipped = append(res.Skipped, snapshot.Skip{Key: strconv.FormatUint(a.Login, 10), Reason: err.Error()})
				continue
			}
			res.Stored++
		}
		return res, nil
	})
	if err != nil {
		return AccountsResult{}, err
	}
	return v.(AccountsResult), nil
}

// SyncAccount refreshes one account. mt5.ErrNotFound is returned unchanged in the chain.
func (s *Service) SyncAccount(ctx context.Context, login uint64) (model.Account, error) {
	v, err := s.coalesced(ctx, flightKey("account", login), func(ctx context.Context) (any, error) {
		a, err := s.fetcher.Account(ctx, login)
		if err != nil {
			s.checkConnection(err)
			return model.Account{}, fmt.Errorf("%w: can't fetch account", err)
		}
		if err := s.store.UpsertAccount(ctx, a); err != nil {
			return model.Account{}, err
		}
		a.SyncedAt = time.Now().UTC()
		return a, nil
	})
	if err != nil {
		return model.Account{}, err
	}
	return v.(model.Account), nil
}

// ScanAccounts probes a login range and stores every account found.
func (s *Service) ScanAccounts(ctx context.Context, from, to uint64, workers int) (ScanResult, error) {
	if workers <= 0 {
		workers = s.cfg.Workers
	}

	var stored, failed atomic.Int64
	found, err := s.fetcher.AccountsByRange(ctx, from, to, workers, func(a model.Account) {
		if err := s.store.UpsertAccount(ctx, a); err != nil {
			s.logger.Errorf("%s: can't store scanned account", err)
			failed.Add(1)
			return
		}
		stored.Add(1)
	})
	res := ScanResult{From: from, To: to, Found: found, Stored: int(stored.Load()), Failed: int(failed.Load())}
	if err != nil {
		s.checkConnection(err)
		return res, err
	}
	return res, nil
}

// SyncDirectory refreshes groups then accounts.
func (s *Service) SyncDirectory(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObserveSweep(JobDirectory, start)

	groups, err := s.SyncGroups(ctx)
	if err != nil {
		return err
	}
	accounts, err := s.SyncAccounts(ctx)
	if err != nil {
		return err
	}

	s.logger.Infow("directory synced",
		"groups", len(groups.Groups),
		"new_groups", groups.Inserted,
		"accounts", accounts.Stored,
		"skipped", len(accounts.Skipped),
	)
	return nil
}
