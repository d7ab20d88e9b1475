package mt5

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/config"
	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/metrics"
)

type CredentialsSource interface {
	Resolve(ctx context.Context) (Credentials, error)
}

type Status struct {
	Connected   bool       `json:"connected"`
	Address     string     `json:"address,omitempty"`
	Login       uint64     `json:"login_id,omitempty"`
	PumpMode    int        `json:"pump_mode,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// Manager owns the single process-wide manager session.
// dialMu serializes connects; mu guards session and status only briefly,
// so Status and Invalidate never wait on a dial.
type Manager struct {
	dialMu sync.Mutex

	mu      sync.Mutex
	session Session
	status  Status
	gen     uint64

	dialer Dialer
	creds  CredentialsSource
	cfg    config.RemoteConfig
	logger logger.Logger
}

func NewManager(dialer Dialer, creds CredentialsSource, cfg config.RemoteConfig, logger logger.Logger) *Manager {
	return &Manager{
		dialer: dialer,
		creds:  creds,
		cfg:    cfg,
		logger: logger,
	}
}

func (m *Manager) current() (Session, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.gen
}

// Acquire returns the live session, dialing one if there is none.
func (m *Manager) Acquire(ctx context.Context) (Session, error) {
	if session, _ := m.current(); session != nil {
		return session, nil
	}

	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	session, gen := m.current()
	if session != nil {
		return session, nil
	}

	creds, err := m.creds.Resolve(ctx)
	if err != nil {
		m.mu.Lock()
		m.status.LastError = err.Error()
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: can't resolve manager credentials", err)
	}

	mode := PumpMode(m.cfg.PumpMode)
	session, err = m.dialer.Dial(ctx, creds, mode, m.cfg.Timeout)
	if err != nil && m.cfg.FallbackPumpMode != m.cfg.PumpMode {
		m.logger.Warnf("%s: can't connect to %s with pump mode %d, retrying with %d",
			err, creds.Address(), m.cfg.PumpMode, m.cfg.FallbackPumpMode)
		mode = PumpMode(m.cfg.FallbackPumpMode)
		session, err = m.dialer.Dial(ctx, creds, mode, m.cfg.Timeout)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.status = Status{Address: creds.Address(), Login: creds.Login, LastError: err.Error()}
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Code: CodeNetwork, Message: err.Error(), Err: err}
	}

	// credentials may have changed while dialing
	if gen != m.gen {
		m.logger.Warnf("dropping session to %s: invalidated while connecting", creds.Address())
		return nil, &ConnectionError{Code: CodeNetwork, Message: "session invalidated while connecting"}
	}

	now := time.Now().UTC()
	m.session = session
	m.status = Status{
		Connected:   true,
		Address:     creds.Address(),
		Login:       creds.Login,
		PumpMode:    int(mode),
		ConnectedAt: &now,
	}
	metrics.SetConnected(true)
	m.logger.Infof("connected to %s as %d (pump mode %d)", creds.Address(), creds.Login, mode)

	return session, nil
}

// Invalidate drops the session; the next Acquire dials again.
// A dial in progress is discarded when it finishes.
func (m *Manager) Invalidate(reason error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	if m.session == nil {
		return
	}
	m.session = nil
	m.status.Connected = false
	m.status.ConnectedAt = nil
	metrics.SetConnected(false)
	if reason != nil {
		m.status.LastError = reason.Error()
		m.logger.Warnf("%s: manager session invalidated", reason)
	} else {
		m.logger.Infof("manager session invalidated")
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
