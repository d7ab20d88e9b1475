package api

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(h.recovery)
	router.Use(h.instrument)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/groups/sync", h.SyncGroups).Methods(http.MethodGet)
	api.HandleFunc("/groups", h.Groups).Methods(http.MethodGet)

	api.HandleFunc("/accounts/sync", h.SyncAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/scan", h.ScanAccounts).Methods(http.MethodPost)
	api.HandleFunc("/accounts", h.Accounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{login:[0-9]+}", h.Account).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{login:[0-9]+}/sync", h.SyncAccount).Methods(http.MethodGet)

	api.HandleFunc("/positions/sync_all", h.SyncAllOpenPositions).Methods(http.MethodGet)
	api.HandleFunc("/positions/open", h.OpenPositions).Methods(http.MethodGet)
	api.HandleFunc("/positions/closed", h.ClosedPositions).Methods(http.MethodGet)
	api.HandleFunc("/positions/{login:[0-9]+}/sync", h.SyncOpenPositions).Methods(http.MethodGet)

	api.HandleFunc("/closepositions/sync_all", h.SyncAllClosedPositions).Methods(http.MethodGet)
	api.HandleFunc("/closepositions/{login:[0-9]+}/sync", h.SyncClosedPositions).Methods(http.MethodGet)

	api.HandleFunc("/volumes", h.Volumes).Methods(http.MethodGet)
	api.HandleFunc("/lots/all", h.Lots).Methods(http.MethodGet)

	api.HandleFunc("/server/settings", h.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/server/settings", h.CreateSettings).Methods(http.MethodPost)
	api.HandleFunc("/server/settings", h.UpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/server/details", h.ServerDetails).Methods(http.MethodGet)
	api.HandleFunc("/server/status", h.ServerStatus).Methods(http.MethodGet)

	return router
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		h.logger.Debugw("request handled",
			"method", r.Method,
			"route", route,
			"status", sw.status,
			"took", time.Since(start),
		)
	})
}

func (h *Handler) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Errorw("handler panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
				h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
