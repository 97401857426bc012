package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/airpointer/internal/app"
)

// Controller is the part of app.App the control surface drives.
type Controller interface {
	Start() error
	Stop() error
	Status() app.Status
	Tuning() app.Tuning
	UpdateTuning(func(*app.Tuning)) (app.Tuning, error)
}

// ControlHandler serves /api/status and /api/control/{start,stop}.
type ControlHandler struct {
	ctrl Controller
}

// NewControlHandler creates a ControlHandler for ctrl.
func NewControlHandler(ctrl Controller) *ControlHandler {
	return &ControlHandler{ctrl: ctrl}
}

// ServeHTTP routes status and control requests.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/status":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	case "/api/control/start":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.respond(w, h.ctrl.Start())
	case "/api/control/stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.respond(w, h.ctrl.Stop())
	default:
		http.NotFound(w, r)
	}
}

// respond writes the controller status, or the error mapped to a status code.
func (h *ControlHandler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// statusForError maps controller errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrAlreadyRunning), errors.Is(err, app.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, app.ErrSourceOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrStopTimeout):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}
