package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
)

type SessionProvider interface {
	Acquire(ctx context.Context) (mt5.Session, error)
}

// TransientFetchError is a failed remote read for a single account.
type TransientFetchError struct {
	Login uint64
	Err   error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch for %d failed: %s", e.Login, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// Skip records a group or login the account scan could not read.
type Skip struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

type Fetcher struct {
	sessions  SessionProvider
	dealChunk time.Duration
	logger    logger.Logger
}

func NewFetcher(sessions SessionProvider, dealChunk time.Duration, logger logger.Logger) *Fetcher {
	return &Fetcher{
		sessions:  sessions,
		dealChunk: dealChunk,
		logger:    logger,
	}
}

func isConnectionErr(err error) bool {
	var connErr *mt5.ConnectionError
	return errors.As(err, &connErr)
}
