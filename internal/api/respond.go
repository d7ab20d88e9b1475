package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/config"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
)

type envelope struct {
	Data        any    `json:"data"`
	StoredCount int    `json:"stored_count"`
	Message     string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// errBadRequest marks malformed client input.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Errorf("%s: can't marshal response", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Debugf("%s: can't write response", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, data any, stored int) {
	h.writeJSON(w, http.StatusOK, envelope{Data: data, StoredCount: stored})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	var connErr *mt5.ConnectionError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrAccountNotFound),
		errors.Is(err, storage.ErrSettingNotFound),
		errors.Is(err, mt5.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &connErr):
		resp.Code = connErr.Code
	}

	if status == http.StatusInternalServerError {
		h.logger.Errorf("%s: %s %s failed", err, r.Method, r.URL.Path)
	}
	h.writeJSON(w, status, resp)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return badRequest("can't read body: %s", err)
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return badRequest("invalid json: %s", err)
	}
	return nil
}

func pathLogin(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["login"]
	login, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || login == 0 {
		return 0, badRequest("invalid login %q", raw)
	}
	return login, nil
}

func queryUint(r *http.Request, key string) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", key, raw)
	}
	return v, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := config.ParseTime(raw)
	if err != nil {
		return nil, badRequest("invalid %s: %s", key, err)
	}
	return &t, nil
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
