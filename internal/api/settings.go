package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/mt5"
	"github.com/STTM-NSU/mt5-sync/internal/storage"
)

type settingRequest struct {
	ID         int64  `json:"id"`
	ServerIP   string `json:"server_ip"`
	Login      uint64 `json:"login_id"`
	Password   string `json:"password"`
	ServerName string `json:"server_name"`
}

func (req settingRequest) validate() error {
	var missing []string
	if strings.TrimSpace(req.ServerIP) == "" {
		missing = append(missing, "server_ip")
	}
	if req.Login == 0 {
		missing = append(missing, "login_id")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return badRequest("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (req settingRequest) toModel() model.ServerSetting {
	return model.ServerSetting{
		ID:         req.ID,
		ServerIP:   strings.TrimSpace(req.ServerIP),
		Login:      req.Login,
		Password:   req.Password,
		ServerName: req.ServerName,
	}
}

// currentSetting is the pinned record, or the latest one when nothing is pinned.
func (h *Handler) currentSetting(r *http.Request) (model.ServerSetting, error) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.ServerSetting{}, badRequest("invalid id %q", raw)
		}
		return h.settings.GetSetting(r.Context(), id)
	}
	if id := h.selector.Selected(); id != 0 {
		return h.settings.GetSetting(r.Context(), id)
	}
	return h.settings.LatestSetting(r.Context())
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.currentSetting(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, s, 1)
}

// CreateSettings stores a new record; it becomes current unless overridden by environment.
func (h *Handler) CreateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.settings.CreateSetting(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.selector.Use(0)
	h.svc.Reset()
	h.ok(w, s, 1)
}

// UpdateSettings rewrites record id and pins it as the credential source.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ID == 0 {
		h.fail(w, r, badRequest("missing required fields: id"))
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.settings.UpdateSetting(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.selector.Use(s.ID)
	h.svc.Reset()
	h.ok(w, s, 1)
}

type serverDetails struct {
	Setting  *model.ServerSetting `json:"setting,omitempty"`
	Selected int64                `json:"selected_id,omitempty"`
	Status   mt5.Status           `json:"status"`
	Groups   []string             `json:"groups"`
}

func (h *Handler) ServerDetails(w http.ResponseWriter, r *http.Request) {
	details := serverDetails{
		Selected: h.selector.Selected(),
		Status:   h.svc.Status(),
		Groups:   h.svc.CachedGroups(),
	}

	s, err := h.currentSetting(r)
	switch {
	case err == nil:
		details.Setting = &s
	case !errors.Is(err, storage.ErrSettingNotFound):
		h.fail(w, r, err)
		return
	}
	h.ok(w, details, len(details.Groups))
}

func (h *Handler) ServerStatus(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.svc.Status(), 0)
}
