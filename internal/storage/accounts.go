package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/STTM-NSU/mt5-sync/internal/model"
)

const (
	_upsertAccount = `INSERT INTO accounts (
								login,
								name,
								email,
								group_name,
								leverage,
								balance,
								equity,
								profit,
								margin,
								margin_free,
								margin_level,
								last_access,
								registration,
								synced_at
							) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
							ON CONFLICT (login)
							DO UPDATE SET
								name = EXCLUDED.name,
								email = EXCLUDED.email,
								group_name = EXCLUDED.group_name,
								leverage = EXCLUDED.leverage,
								balance = EXCLUDED.balance,
								equity = EXCLUDED.equity,
								profit = EXCLUDED.profit,
								margin = EXCLUDED.margin,
								margin_free = EXCLUDED.margin_free,
								margin_level = EXCLUDED.margin_level,
								last_access = EXCLUDED.last_access,
								registration = EXCLUDED.registration,
								synced_at = EXCLUDED.synced_at;`
	_ensureAccount = "INSERT INTO accounts (login) VALUES ($1) ON CONFLICT (login) DO NOTHING"

	_accountColumns = `login, name, email, group_name, leverage, balance, equity, profit,
		margin, margin_free, margin_level, last_access, registration, synced_at`
	_queryAccount    = "SELECT " + _accountColumns + " FROM accounts WHERE login = $1"
	_queryAccounts   = "SELECT " + _accountColumns + " FROM accounts ORDER BY login"
	_searchAccounts  = "SELECT " + _accountColumns + " FROM accounts WHERE name ILIKE $1 OR email ILIKE $1 ORDER BY login"
	_queryLogins     = "SELECT login FROM accounts ORDER BY login"
	_queryLoginExist = "SELECT EXISTS (SELECT 1 FROM accounts WHERE login = $1)"
)

// UpsertAccount overwrites the whole profile and financial snapshot.
func (s *Storage) UpsertAccount(ctx context.Context, a model.Account) error {
	if _, err := s.db.ExecContext(ctx, _upsertAccount,
		a.Login,
		a.Name,
		a.Email,
		a.Group,
		a.Leverage,
		a.Balance,
		a.Equity,
		a.Profit,
		a.Margin,
		a.MarginFree,
		a.MarginLevel,
		a.LastAccess,
		a.Registration,
	); err != nil {
		return fmt.Errorf("%w: can't upsert account %d", err, a.Login)
	}
	return nil
}

// EnsureAccount creates a bare account row so positions always have a parent.
func (s *Storage) EnsureAccount(ctx context.Context, login uint64) error {
	if _, err := s.db.ExecContext(ctx, _ensureAccount, login); err != nil {
		return fmt.Errorf("%w: can't ensure account %d", err, login)
	}
	return nil
}

func (s *Storage) AccountExists(ctx context.Context, login uint64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, _queryLoginExist, login); err != nil {
		return false, fmt.Errorf("%w: can't check account %d", err, login)
	}
	return exists, nil
}

func (s *Storage) GetAccount(ctx context.Context, login uint64) (model.Account, error) {
	var a model.Account
	if err := s.db.GetContext(ctx, &a, _queryAccount, login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, ErrAccountNotFound
		}
		return a, fmt.Errorf("%w: can't query account", err)
	}
	return a, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts := make([]model.Account, 0)
	if err := s.db.SelectContext(ctx, &accounts, _queryAccounts); err != nil {
		return nil, fmt.Errorf("%w: can't query accounts", err)
	}
	return accounts, nil
}

// SearchAccounts matches a case-insensitive substring of name or email.
func (s *Storage) SearchAccounts(ctx context.Context, q string) ([]model.Account, error) {
	accounts := make([]model.Account, 0)
	if err := s.db.SelectContext(ctx, &accounts, _searchAccounts, "%"+q+"%"); err != nil {
		return nil, fmt.Errorf("%w: can't search accounts", err)
	}
	return accounts, nil
}

func (s *Storage) ListLogins(ctx context.Context) ([]uint64, error) {
	logins := make([]uint64, 0)
	if err := s.db.SelectContext(ctx, &logins, _queryLogins); err != nil {
		return nil, fmt.Errorf("%w: can't query logins", err)
	}
	return logins, nil
}
