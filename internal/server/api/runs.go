package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/airpointer/internal/app"
	"github.com/ayusman/airpointer/internal/store"
)

const defaultRunsLimit = 50

// RunsHandler handles HTTP requests for run history.
type RunsHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewRunsHandler creates a new RunsHandler with the given store. When ctrl
// is set, the run it is currently executing cannot be deleted.
func NewRunsHandler(s *store.Store, ctrl Controller) *RunsHandler {
	return &RunsHandler{store: s, ctrl: ctrl}
}

// ServeHTTP routes /api/runs and /api/runs/{id}.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type runResponse struct {
	ID              string          `json:"id"`
	StartedAt       string          `json:"started_at"`
	StoppedAt       string          `json:"stopped_at,omitempty"`
	StopReason      string          `json:"stop_reason,omitempty"`
	Error           string          `json:"error,omitempty"`
	Frames          int             `json:"frames"`
	HandFrames      int             `json:"hand_frames"`
	Clicks          int             `json:"clicks"`
	Alpha           float64         `json:"alpha"`
	PinchThreshold  float64         `json:"pinch_threshold"`
	ClickCooldownMs int             `json:"click_cooldown_ms"`
	ClickMode       string          `json:"click_mode"`
	ClickEvents     []clickResponse `json:"click_events,omitempty"`
}

type clickResponse struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	ClickedAt string `json:"clicked_at"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

func toRunResponse(run *store.Run) runResponse {
	resp := runResponse{
		ID:              run.ID,
		StartedAt:       run.StartedAt.Format(time.RFC3339),
		StopReason:      run.StopReason,
		Error:           run.Error,
		Frames:          run.Frames,
		HandFrames:      run.HandFrames,
		Clicks:          run.Clicks,
		Alpha:           run.Alpha,
		PinchThreshold:  run.PinchThreshold,
		ClickCooldownMs: run.ClickCooldownMs,
		ClickMode:       run.ClickMode,
	}
	if run.StoppedAt != nil {
		resp.StoppedAt = run.StoppedAt.Format(time.RFC3339)
	}
	return resp
}

// list handles GET /api/runs?limit=N, newest first.
func (h *RunsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.store.Runs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{Runs: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/runs/{id} and includes the run's clicks.
func (h *RunsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	clicks, err := h.store.Runs().Clicks(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get clicks")
		return
	}

	resp := toRunResponse(run)
	for _, c := range clicks {
		resp.ClickEvents = append(resp.ClickEvents, clickResponse{
			X:         c.X,
			Y:         c.Y,
			ClickedAt: c.ClickedAt.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/runs/{id}.
func (h *RunsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.ctrl != nil {
		if st := h.ctrl.Status(); st.State != app.StateIdle && st.RunID == id {
			writeError(w, http.StatusConflict, "Run is still active")
			return
		}
	}

	if err := h.store.Runs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
