package storage

import (
	"context"
	"fmt"
)

const (
	_insertGroup = "INSERT INTO groups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING"
	_queryGroups = "SELECT name FROM groups ORDER BY name"
)

// InsertGroup reports whether the name was new.
func (s *Storage) InsertGroup(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, _insertGroup, name)
	if err != nil {
		return false, fmt.Errorf("%w: can't insert group %q", err, name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: can't count inserted groups", err)
	}
	return n > 0, nil
}

func (s *Storage) ListGroups(ctx context.Context) ([]string, error) {
	groups := make([]string, 0)
	if err := s.db.SelectContext(ctx, &groups, _queryGroups); err != nil {
		return nil, fmt.Errorf("%w: can't query groups", err)
	}
	return groups, nil
}
