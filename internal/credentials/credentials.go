package credentials

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
)

var ErrIncomplete = errors.New("manager credentials are incomplete")

type SettingsStore interface {
	GetSetting(ctx context.Context, id int64) (model.ServerSetting, error)
	LatestSetting(ctx context.Context) (model.ServerSetting, error)
}

// Resolver picks manager credentials: an explicitly selected record first,
// then MT5_* environment variables, with gaps filled from the latest record.
// The port falls back to 443 only when neither source has one.
type Resolver struct {
	store  SettingsStore
	getenv func(string) string

	mu       sync.RWMutex
	selected int64
}

func NewResolver(store SettingsStore) *Resolver {
	return &Resolver{
		store:  store,
		getenv: os.Getenv,
	}
}

// Use pins a record id. Zero clears the pin.
func (r *Resolver) Use(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = id
}

func (r *Resolver) Selected() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

func fromSetting(s model.ServerSetting) mt5.Credentials {
	host, port := s.HostPort()
	return mt5.Credentials{
		Host:     host,
		Port:     port,
		Login:    s.Login,
		Password: s.Password,
	}
}

func complete(c mt5.Credentials) bool {
	return c.Host != "" && c.Port != "" && c.Login != 0 && c.Password != ""
}

func (r *Resolver) fromEnv() mt5.Credentials {
	login, _ := strconv.ParseUint(r.getenv("MT5_MANAGER_USER"), 10, 64)
	return mt5.Credentials{
		Host:     r.getenv("MT5_HOST"),
		Port:     r.getenv("MT5_PORT"),
		Login:    login,
		Password: r.getenv("MT5_MANAGER_PASS"),
	}
}

func (r *Resolver) Resolve(ctx context.Context) (mt5.Credentials, error) {
	if id := r.Selected(); id != 0 {
		s, err := r.store.GetSetting(ctx, id)
		if err != nil {
			return mt5.Credentials{}, fmt.Errorf("%w: can't load selected server setting %d", err, id)
		}
		creds := fromSetting(s)
		if !complete(creds) {
			return creds, ErrIncomplete
		}
		return creds, nil
	}

	creds := r.fromEnv()
	if complete(creds) {
		return creds, nil
	}

	latest, err := r.store.LatestSetting(ctx)
	if err != nil && !errors.Is(err, storage.ErrSettingNotFound) {
		return creds, fmt.Errorf("%w: can't load latest server setting", err)
	}
	if err == nil {
		stored := fromSetting(latest)
		creds.Host = cmp.Or(creds.Host, stored.Host)
		creds.Port = cmp.Or(creds.Port, stored.Port)
		creds.Login = cmp.Or(creds.Login, stored.Login)
		creds.Password = cmp.Or(creds.Password, stored.Password)
	}
	if creds.Host != "" && creds.Port == "" {
		creds.Port = model.DefaultServerPort
	}

	if !complete(creds) {
		return creds, ErrIncomplete
	}
	return creds, nil
}
