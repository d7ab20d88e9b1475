package mt5

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const _testToken = "tok-123"

func writeAnswer(w http.ResponseWriter, retcode string, answer any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"retcode": retcode, "answer": answer})
}

func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(_authURL, func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			writeAnswer(w, "3006 Invalid account", nil)
			return
		}
		writeAnswer(w, "0 Done", authAnswer{Token: _testToken})
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+_testToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc(_groupTotalURL, authed(func(w http.ResponseWriter, r *http.Request) {
		writeAnswer(w, "0 Done", groupTotal{Total: 2})
	}))
	mux.HandleFunc(_groupNextURL, authed(func(w http.ResponseWriter, r *http.Request) {
		names := map[string]string{"0": "demo\\retail", "1": "real\\vip"}
		writeAnswer(w, "0 Done", groupNext{Group: names[r.URL.Query().Get("index")]})
	}))
	mux.HandleFunc(_userURL, authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("login") != "1001" {
			writeAnswer(w, "13 Not found", nil)
			return
		}
		writeAnswer(w, "0 Done", webUser{Login: 1001, Group: "real\\vip", Name: "Anna", Leverage: 100, Registration: 1700000000})
	}))
	mux.HandleFunc(_positionsURL, authed(func(w http.ResponseWriter, r *http.Request) {
		writeAnswer(w, "0 Done", []webPosition{
			{Position: 5001, Login: 1001, Symbol: "EURUSD", Action: 0, Volume: 10000, PriceOpen: 1.1, TimeCreate: 1700000000},
			{Position: 5002, Login: 1001, Symbol: "GBPUSD", Action: 1, Volume: 25000, PriceOpen: 1.25, TimeCreate: 1700000100},
		})
	}))
	mux.HandleFunc(_dealsURL, authed(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1700000000", r.URL.Query().Get("from"))
		writeAnswer(w, "0 Done", []webDeal{
			{Deal: 9001, Position: 5001, Login: 1001, Symbol: "EURUSD", Action: 1, Entry: 1, VolumeClosed: 10000, Price: 1.2, PricePosition: 1.1, Time: 1700000500},
		})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, password string) (Session, error) {
	t.Helper()
	d := NewWebDialer(srv.URL, 6000, logger.NewNopLogger())
	return d.Dial(context.Background(), Credentials{Host: "10.0.0.1", Port: "443", Login: 7, Password: password}, 2, 5*time.Second)
}

func TestWebDialerRejectsBadCredentials(t *testing.T) {
	srv := newGateway(t)

	_, err := dial(t, srv, "wrong")
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, 3006, connErr.Code)
	assert.Equal(t, "Invalid account", connErr.Message)
}

func TestWebSessionCalls(t *testing.T) {
	ctx := context.Background()
	srv := newGateway(t)

	s, err := dial(t, srv, "secret")
	require.NoError(t, err)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo\\retail", "real\\vip"}, groups)

	user, err := s.User(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.Name)
	assert.Equal(t, "real\\vip", user.Group)
	require.NotNil(t, user.Registration)
	assert.Nil(t, user.LastAccess)

	_, err = s.User(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	positions, err := s.Positions(ctx, 1001)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, 1.0, positions[0].Volume)
	assert.Equal(t, model.Buy, positions[0].Side)
	assert.Equal(t, 2.5, positions[1].Volume)
	assert.Equal(t, model.Sell, positions[1].Side)

	deals, err := s.Deals(ctx, 1001, time.Unix(1700000000, 0), time.Unix(1700086400, 0))
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.True(t, deals[0].IsClosing())
	assert.Equal(t, 1.0, deals[0].VolumeClosed)
	assert.Equal(t, uint64(10000), deals[0].RawVolumeClosed)
	assert.Equal(t, uint64(5001), deals[0].PositionID)
}
