package mt5

import (
	"context"
	"net"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/model"
)

// Session is an authenticated manager connection. Implementations must be safe for concurrent use.
type Session interface {
	Groups(ctx context.Context) ([]string, error)
	UsersByGroup(ctx context.Context, group string) ([]model.Account, error)
	User(ctx context.Context, login uint64) (model.Account, error)
	// UserAccount returns only the financial snapshot fields of the account.
	UserAccount(ctx context.Context, login uint64) (model.Account, error)
	Positions(ctx context.Context, login uint64) ([]model.PositionRecord, error)
	Deals(ctx context.Context, login uint64, from, to time.Time) ([]model.DealRecord, error)
}

type Credentials struct {
	Host     string
	Port     string
	Login    uint64
	Password string
}

func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// PumpMode selects which data the manager connection subscribes to.
type PumpMode int

type Dialer interface {
	Dial(ctx context.Context, creds Credentials, mode PumpMode, timeout time.Duration) (Session, error)
}
