package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ayusman/airpointer/internal/app"
	"github.com/ayusman/airpointer/internal/log"
	"github.com/ayusman/airpointer/internal/store"
)

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	ctrl  Controller
	store *store.Store

	mu sync.Mutex // keeps the persisted tuning in step with the controller
}

// NewSettingsHandler creates a SettingsHandler. A nil store keeps changes in memory only.
func NewSettingsHandler(ctrl Controller, s *store.Store) *SettingsHandler {
	return &SettingsHandler{ctrl: ctrl, store: s}
}

// updateSettingsRequest holds the fields to change; omitted fields keep their value.
type updateSettingsRequest struct {
	Alpha           *float64 `json:"alpha"`
	PinchThreshold  *float64 `json:"pinch_threshold"`
	ClickCooldownMs *int     `json:"click_cooldown_ms"`
	ClickMode       *string  `json:"click_mode"`
}

type settingsResponse struct {
	app.Tuning
	// Pending is true while the active run uses a different tuning; changes
	// apply from the next start.
	Pending bool `json:"pending"`
}

func (h *SettingsHandler) response() settingsResponse {
	st := h.ctrl.Status()
	return settingsResponse{Tuning: st.Tuning, Pending: st.TuningPending()}
}

// ServeHTTP handles settings requests.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.response())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t, err := h.ctrl.UpdateTuning(func(t *app.Tuning) {
		if req.Alpha != nil {
			t.Alpha = *req.Alpha
		}
		if req.PinchThreshold != nil {
			t.PinchThreshold = *req.PinchThreshold
		}
		if req.ClickCooldownMs != nil {
			t.ClickCooldownMs = *req.ClickCooldownMs
		}
		if req.ClickMode != nil {
			t.ClickMode = *req.ClickMode
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		if err := app.SaveTuning(h.store, t); err != nil {
			log.Error("failed to persist settings", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	writeJSON(w, http.StatusOK, h.response())
}
