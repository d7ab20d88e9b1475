package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrSettingNotFound = errors.New("server setting not found")
)

type Storage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// PositionFilter narrows position reads. Zero values mean "any".
type PositionFilter struct {
	Login  uint64
	Symbol string
	From   *time.Time
	To     *time.Time
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
