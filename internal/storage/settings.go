package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/STTM-NSU/mt5-sync/internal/model"
)

const (
	_insertSetting = `INSERT INTO server_settings (server_ip, login, password, server_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	_updateSetting = `UPDATE server_settings
		SET server_ip = $2, login = $3, password = $4, server_name = $5
		WHERE id = $1
		RETURNING created_at`
	_settingColumns = "id, server_ip, login, password, server_name, created_at"
	_querySetting   = "SELECT " + _settingColumns + " FROM server_settings WHERE id = $1"
	_queryLatest    = "SELECT " + _settingColumns + " FROM server_settings ORDER BY created_at DESC, id DESC LIMIT 1"
)

func (s *Storage) CreateSetting(ctx context.Context, st model.ServerSetting) (model.ServerSetting, error) {
	row := s.db.QueryRowxContext(ctx, _insertSetting, st.ServerIP, st.Login, st.Password, st.ServerName)
	if err := row.Scan(&st.ID, &st.CreatedAt); err != nil {
		return st, fmt.Errorf("%w: can't insert server setting", err)
	}
	return st, nil
}

func (s *Storage) UpdateSetting(ctx context.Context, st model.ServerSetting) (model.ServerSetting, error) {
	row := s.db.QueryRowxContext(ctx, _updateSetting, st.ID, st.ServerIP, st.Login, st.Password, st.ServerName)
	if err := row.Scan(&st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, ErrSettingNotFound
		}
		return st, fmt.Errorf("%w: can't update server setting %d", err, st.ID)
	}
	return st, nil
}

func (s *Storage) GetSetting(ctx context.Context, id int64) (model.ServerSetting, error) {
	var st model.ServerSetting
	if err := s.db.GetContext(ctx, &st, _querySetting, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, ErrSettingNotFound
		}
		return st, fmt.Errorf("%w: can't query server setting %d", err, id)
	}
	return st, nil
}

// LatestSetting returns the most recently created record.
func (s *Storage) LatestSetting(ctx context.Context) (model.ServerSetting, error) {
	var st model.ServerSetting
	if err := s.db.GetContext(ctx, &st, _queryLatest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, ErrSettingNotFound
		}
		return st, fmt.Errorf("%w: can't query latest server setting", err)
	}
	return st, nil
}
