package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
	"github.com/STTM-NSU/mt5-sync/internal/syncer"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	mu        sync.Mutex
	resets    int
	openErr   error
	closedArg [2]time.Time
	window    time.Duration
}

func (f *fakeSyncer) SyncGroups(context.Context) (syncer.GroupsResult, error) {
	return syncer.GroupsResult{Groups: []string{"real", "demo"}, Inserted: 1}, nil
}
func (f *fakeSyncer) SyncAccounts(context.Context) (syncer.AccountsResult, error) {
	return syncer.AccountsResult{Fetched: 3, Stored: 3}, nil
}
func (f *fakeSyncer) SyncAccount(_ context.Context, login uint64) (model.Account, error) {
	if login != 1001 {
		return model.Account{}, mt5.ErrNotFound
	}
	return model.Account{Login: login}, nil
}
func (f *fakeSyncer) ScanAccounts(_ context.Context, from, to uint64, _ int) (syncer.ScanResult, error) {
	return syncer.ScanResult{From: from, To: to, Found: 2, Stored: 2}, nil
}
func (f *fakeSyncer) SyncOpenPositions(_ context.Context, login uint64) (reconcile.Result, error) {
	if f.openErr != nil {
		return reconcile.Result{}, f.openErr
	}
	return reconcile.Result{Login: login, Kind: reconcile.KindOpen, Fetched: 2, Inserted: 1, Unchanged: 1}, nil
}
func (f *fakeSyncer) SyncAllOpenPositions(context.Context) (*syncer.Report, error) {
	return &syncer.Report{ID: "r1", Job: syncer.JobOpen, Inserted: 4}, nil
}
func (f *fakeSyncer) SyncClosedPositions(_ context.Context, login uint64, from, to time.Time) (reconcile.Result, error) {
	f.closedArg = [2]time.Time{from, to}
	return reconcile.Result{Login: login, Kind: reconcile.KindClosed, Inserted: 1}, nil
}
func (f *fakeSyncer) SyncAllClosedPositions(_ context.Context, window time.Duration) (*syncer.Report, error) {
	f.window = window
	return &syncer.Report{ID: "r2", Job: syncer.JobClosed, Updated: 2}, nil
}
func (f *fakeSyncer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}
func (f *fakeSyncer) Status() mt5.Status { return mt5.Status{Connected: true, Address: "h:443"} }
func (f *fakeSyncer) CachedGroups() []string { return []string{"real"} }

type fakeReader struct {
	query  string
	filter storage.PositionFilter
}

func (f *fakeReader) Ping(context.Context) error { return nil }
func (f *fakeReader) ListGroups(context.Context) ([]string, error) {
	return []string{"demo", "real"}, nil
}
func (f *fakeReader) ListAccounts(context.Context) ([]model.Account, error) {
	return []model.Account{{Login: 1001}, {Login: 1002}}, nil
}
func (f *fakeReader) SearchAccounts(_ context.Context, q string) ([]model.Account, error) {
	f.query = q
	return []model.Account{{Login: 1001, Name: "Anna"}}, nil
}
func (f *fakeReader) GetAccount(_ context.Context, login uint64) (model.Account, error) {
	if login != 1001 {
		return model.Account{}, storage.ErrAccountNotFound
	}
	return model.Account{Login: 1001}, nil
}
func (f *fakeReader) ListOpenPositions(_ context.Context, flt storage.PositionFilter) ([]model.OpenPosition, error) {
	f.filter = flt
	return []model.OpenPosition{{Login: 1001, PositionID: 5001, Symbol: "EURUSD", Volume: 1}}, nil
}
func (f *fakeReader) ListClosedPositions(_ context.Context, flt storage.PositionFilter) ([]model.ClosedPosition, error) {
	f.filter = flt
	return []model.ClosedPosition{}, nil
}
func (f *fakeReader) SymbolVolumes(_ context.Context, flt storage.PositionFilter) ([]model.SymbolVolume, error) {
	f.filter = flt
	return []model.SymbolVolume{{Symbol: "EURUSD", OpenVolume: 1, ClosedVolume: 2.5, NetVolume: 3.5}}, nil
}
func (f *fakeReader) LotMatrix(context.Context) ([]model.LoginSymbolLot, error) {
	return []model.LoginSymbolLot{{Login: 1001, Symbol: "EURUSD", Lot: 1}}, nil
}

type fakeSettings struct {
	records map[int64]model.ServerSetting
	nextID  int64
}

func (f *fakeSettings) CreateSetting(_ context.Context, s model.ServerSetting) (model.ServerSetting, error) {
	f.nextID++
	s.ID = f.nextID
	f.records[s.ID] = s
	return s, nil
}
func (f *fakeSettings) UpdateSetting(_ context.Context, s model.ServerSetting) (model.ServerSetting, error) {
	if _, ok := f.records[s.ID]; !ok {
		return s, storage.ErrSettingNotFound
	}
	f.records[s.ID] = s
	return s, nil
}
func (f *fakeSettings) GetSetting(_ context.Context, id int64) (model.ServerSetting, error) {
	s, ok := f.records[id]
	if !ok {
		return s, storage.ErrSettingNotFound
	}
	return s, nil
}
func (f *fakeSettings) LatestSetting(context.Context) (model.ServerSetting, error) {
	s, ok := f.records[f.nextID]
	if !ok {
		return s, storage.ErrSettingNotFound
	}
	return s, nil
}

type fakeSelector struct{ id int64 }

func (f *fakeSelector) Use(id int64) { f.id = id }
func (f *fakeSelector) Selected() int64 { return f.id }

type fixture struct {
	svc      *fakeSyncer
	reader   *fakeReader
	settings *fakeSettings
	selector *fakeSelector
	router   http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		svc:      &fakeSyncer{},
		reader:   &fakeReader{},
		settings: &fakeSettings{records: make(map[int64]model.ServerSetting)},
		selector: &fakeSelector{},
	}
	f.router = NewRouter(NewHandler(f.svc, f.reader, f.settings, f.selector, logger.NewNopLogger()))
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAccountRoutes(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodGet, "/api/accounts/1001", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["stored_count"])

	rec, body = f.do(t, http.MethodGet, "/api/accounts/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, storage.ErrAccountNotFound.Error(), body["error"])

	rec, body = f.do(t, http.MethodGet, "/api/accounts?q=ann", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann", f.reader.query)
	assert.Equal(t, 1.0, body["stored_count"])

	rec, _ = f.do(t, http.MethodGet, "/api/accounts/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/accounts/77/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/api/accounts/scan?from=1000&to=1010&workers=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["stored_count"])

	rec, _ = f.do(t, http.MethodPost, "/api/accounts/scan?from=10&to=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionSyncRoutes(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodGet, "/api/positions/1001/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["stored_count"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "open", data["kind"])

	rec, body = f.do(t, http.MethodGet, "/api/positions/sync_all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, body["stored_count"])

	rec, body = f.do(t, http.MethodGet, "/api/positions/sync_all?async=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open positions sync started", body["message"])

	f.svc.openErr = &mt5.ConnectionError{Code: 3006, Message: "invalid account"}
	rec, body = f.do(t, http.MethodGet, "/api/positions/1001/sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 3006.0, body["code"])
	assert.Contains(t, body["error"], "invalid account")

	f.svc.openErr = errors.New("db down")
	rec, _ = f.do(t, http.MethodGet, "/api/positions/1001/sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClosedSyncRoutes(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodGet, "/api/closepositions/1001/sync?from=2025-01-01&to=2025-02-01", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), f.svc.closedArg[0])

	rec, _ = f.do(t, http.MethodGet, "/api/closepositions/1001/sync?from=2025-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/closepositions/1001/sync?from=2025-02-01&to=2025-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/api/closepositions/sync_all?days=7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7*24*time.Hour, f.svc.window)
	assert.Equal(t, 2.0, body["stored_count"])

	rec, _ = f.do(t, http.MethodGet, "/api/closepositions/sync_all?days=week", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadRoutes(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodGet, "/api/positions/open?login=1001&symbol=EURUSD", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1001), f.reader.filter.Login)
	assert.Equal(t, "EURUSD", f.reader.filter.Symbol)
	assert.Equal(t, 1.0, body["stored_count"])

	rec, body = f.do(t, http.MethodGet, "/api/positions/closed?from=2025-01-01T00:00:00Z", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.reader.filter.From)
	assert.Equal(t, []any{}, body["data"])

	rec, body = f.do(t, http.MethodGet, "/api/volumes", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	row := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, 3.5, row["net_volume"])

	rec, _ = f.do(t, http.MethodGet, "/api/volumes?login=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/api/lots/all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	row = body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, 1001.0, row["login_id"])

	rec, _ = f.do(t, http.MethodGet, "/api/groups", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSettingsRoutes(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodGet, "/api/server/settings", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := f.do(t, http.MethodPost, "/api/server/settings", `{"server_ip":"10.0.0.1","login_id":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "password")
	assert.Zero(t, f.svc.resets)

	rec, _ = f.do(t, http.MethodPost, "/api/server/settings", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/api/server/settings",
		`{"server_ip":"10.0.0.1","login_id":7,"password":"secret","server_name":"demo"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.svc.resets)
	data := body["data"].(map[string]any)
	assert.Equal(t, 1.0, data["id"])
	assert.NotContains(t, data, "password")

	rec, _ = f.do(t, http.MethodPut, "/api/server/settings", `{"server_ip":"10.0.0.2","login_id":8,"password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/api/server/settings", `{"id":9,"server_ip":"10.0.0.2","login_id":8,"password":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/api/server/settings", `{"id":1,"server_ip":"10.0.0.2","login_id":8,"password":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), f.selector.id)
	assert.Equal(t, 2, f.svc.resets)

	rec, body = f.do(t, http.MethodGet, "/api/server/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.2", body["data"].(map[string]any)["server_ip"])

	rec, body = f.do(t, http.MethodGet, "/api/server/details", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	details := body["data"].(map[string]any)
	assert.Equal(t, 1.0, details["selected_id"])
	assert.Equal(t, true, details["status"].(map[string]any)["connected"])

	rec, _ = f.do(t, http.MethodGet, "/api/server/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
