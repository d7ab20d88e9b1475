package api

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) SyncGroups(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SyncGroups(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, res, len(res.Groups)-len(res.Skipped))
}

func (h *Handler) SyncAccounts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SyncAccounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, res, res.Stored)
}

func (h *Handler) SyncAccount(w http.ResponseWriter, r *http.Request) {
	login, err := pathLogin(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.svc.SyncAccount(r.Context(), login)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, a, 1)
}

// ScanAccounts probes POST /api/accounts/scan?from=&to=&workers=.
func (h *Handler) ScanAccounts(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryUint(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	workers, err := queryUint(r, "workers")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if from == 0 || to == 0 || from > to {
		h.fail(w, r, badRequest("from and to must form a non-empty login range"))
		return
	}

	res, err := h.svc.ScanAccounts(r.Context(), from, to, int(workers))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, res, res.Stored)
}

func (h *Handler) SyncOpenPositions(w http.ResponseWriter, r *http.Request) {
	login, err := pathLogin(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.SyncOpenPositions(r.Context(), login)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, res, res.Stored())
}

// background detaches a sweep from the request so it outlives the response.
func (h *Handler) background(r *http.Request, name string, fn func(ctx context.Context) error) {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := fn(ctx); err != nil {
			h.logger.Errorf("%s: background %s failed", err, name)
		}
	}()
}

func (h *Handler) SyncAllOpenPositions(w http.ResponseWriter, r *http.Request) {
	if queryBool(r, "async") {
		h.background(r, "open positions sweep", func(ctx context.Context) error {
			_, err := h.svc.SyncAllOpenPositions(ctx)
			return err
		})
		h.writeJSON(w, http.StatusOK, envelope{Message: "open positions sync started"})
		return
	}

	report, err := h.svc.SyncAllOpenPositions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, report, report.Stored())
}

func (h *Handler) SyncClosedPositions(w http.ResponseWriter, r *http.Request) {
	login, err := pathLogin(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var f, t time.Time
	if from != nil && to != nil {
		if !from.Before(*to) {
			h.fail(w, r, badRequest("from must be before to"))
			return
		}
		f, t = *from, *to
	} else if from != nil || to != nil {
		h.fail(w, r, badRequest("from and to must be given together"))
		return
	}

	res, err := h.svc.SyncClosedPositions(r.Context(), login, f, t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, res, res.Stored())
}

// SyncAllClosedPositions sweeps GET /api/closepositions/sync_all?days=.
func (h *Handler) SyncAllClosedPositions(w http.ResponseWriter, r *http.Request) {
	days, err := queryUint(r, "days")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	window := time.Duration(days) * 24 * time.Hour

	if queryBool(r, "async") {
		h.background(r, "closed positions sweep", func(ctx context.Context) error {
			_, err := h.svc.SyncAllClosedPositions(ctx, window)
			return err
		})
		h.writeJSON(w, http.StatusOK, envelope{Message: "closed positions sync started"})
		return
	}

	report, err := h.svc.SyncAllClosedPositions(r.Context(), window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, report, report.Stored())
}
