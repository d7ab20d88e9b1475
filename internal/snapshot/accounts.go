package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"golang.org/x/sync/errgroup"
)

func (f *Fetcher) Groups(ctx context.Context) ([]string, error) {
	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: can't acquire session", err)
	}

	groups, err := session.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: can't fetch groups", err)
	}
	return groups, nil
}

func withFinancials(profile, state model.Account) model.Account {
	profile.Balance = state.Balance
	profile.Equity = state.Equity
	profile.Profit = state.Profit
	profile.Margin = state.Margin
	profile.MarginFree = state.MarginFree
	profile.MarginLevel = state.MarginLevel
	return profile
}

func (f *Fetcher) account(ctx context.Context, session mt5.Session, login uint64) (model.Account, error) {
	profile, err := session.User(ctx, login)
	if err != nil {
		return model.Account{}, err
	}
	if profile.Login == 0 {
		profile.Login = login
	}

	state, err := session.UserAccount(ctx, login)
	if err != nil {
		return model.Account{}, err
	}
	return withFinancials(profile, state), nil
}

// Account reads one account's profile and financial snapshot.
func (f *Fetcher) Account(ctx context.Context, login uint64) (model.Account, error) {
	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: can't acquire session", err)
	}

	a, err := f.account(ctx, session, login)
	if err != nil {
		if errors.Is(err, mt5.ErrNotFound) {
			return model.Account{}, err
		}
		return model.Account{}, &TransientFetchError{Login: login, Err: err}
	}
	return a, nil
}

// Accounts walks every group and every user in it. Unreadable groups and users are skipped.
func (f *Fetcher) Accounts(ctx context.Context) ([]model.Account, []Skip, error) {
	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't acquire session", err)
	}

	groups, err := session.Groups(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't fetch groups", err)
	}

	var (
		accounts []model.Account
		skipped  []Skip
	)
	for _, group := range groups {
		users, err := session.UsersByGroup(ctx, group)
		if err != nil {
			if isConnectionErr(err) {
				return accounts, skipped, err
			}
			f.logger.Warnf("%s: can't list users of group %s", err, group)
			skipped = append(skipped, Skip{Key: group, Reason: err.Error()})
			continue
		}

		for _, u := range users {
			state, err := session.UserAccount(ctx, u.Login)
			if err != nil {
				if isConnectionErr(err) {
					return accounts, skipped, err
				}
				f.logger.Warnf("%s: can't get account %d", err, u.Login)
				skipped = append(skipped, Skip{Key: strconv.FormatUint(u.Login, 10), Reason: err.Error()})
				continue
			}
			if u.Group == "" {
				u.Group = group
			}
			accounts = append(accounts, withFinancials(u, state))
		}
	}

	return accounts, skipped, nil
}

// AccountsByRange probes every login in [from, to] with at most workers concurrent lookups.
// onFound is called for each existing account as soon as it is read; it must be safe for concurrent use.
func (f *Fetcher) AccountsByRange(ctx context.Context, from, to uint64, workers int, onFound func(model.Account)) (int, error) {
	if from > to {
		return 0, fmt.Errorf("invalid login range %d-%d", from, to)
	}

	session, err := f.sessions.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: can't acquire session", err)
	}

	var found atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for login := from; login <= to; login++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			a, err := f.account(gctx, session, login)
			switch {
			case err == nil:
				found.Add(1)
				onFound(a)
			case errors.Is(err, mt5.ErrNotFound):
			case isConnectionErr(err):
				return err
			default:
				f.logger.Warnf("%s: can't read login %d", err, login)
			}
			return nil
		})
		if login == to {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return int(found.Load()), fmt.Errorf("%w: login range scan aborted", err)
	}
	return int(found.Load()), nil
}
