package api

import (
	"net/http"
	"strings"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.reader.Ping(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.reader.ListGroups(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, groups, len(groups))
}

// Accounts lists GET /api/accounts, optionally filtered by ?q= against name and email.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	var (
		accounts []model.Account
		err      error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		accounts, err = h.reader.SearchAccounts(r.Context(), q)
	} else {
		accounts, err = h.reader.ListAccounts(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, accounts, len(accounts))
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	login, err := pathLogin(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.reader.GetAccount(r.Context(), login)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, a, 1)
}

func positionFilter(r *http.Request) (storage.PositionFilter, error) {
	var f storage.PositionFilter
	login, err := queryUint(r, "login")
	if err != nil {
		return f, err
	}
	f.Login = login
	f.Symbol = strings.TrimSpace(r.URL.Query().Get("symbol"))

	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, badRequest("from must be before to")
	}
	return f, nil
}

func (h *Handler) OpenPositions(w http.ResponseWriter, r *http.Request) {
	f, err := positionFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	positions, err := h.reader.ListOpenPositions(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, positions, len(positions))
}

func (h *Handler) ClosedPositions(w http.ResponseWriter, r *http.Request) {
	f, err := positionFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	positions, err := h.reader.ListClosedPositions(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, positions, len(positions))
}

func (h *Handler) Volumes(w http.ResponseWriter, r *http.Request) {
	f, err := positionFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	volumes, err := h.reader.SymbolVolumes(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, volumes, len(volumes))
}

func (h *Handler) Lots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.reader.LotMatrix(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, lots, len(lots))
}
