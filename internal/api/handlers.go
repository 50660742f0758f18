// Package api exposes selection sessions over HTTP: each endpoint replays one
// event the map view would emit.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
	"github.com/mohammed-shakir/farm-selector/internal/logger"
	"github.com/mohammed-shakir/farm-selector/internal/navigation"
	"github.com/mohammed-shakir/farm-selector/internal/selection"
	"github.com/mohammed-shakir/farm-selector/internal/sessions"
	"github.com/mohammed-shakir/farm-selector/internal/submitter"
)

// Resolver consumes a results-view handoff.
type Resolver interface {
	Resolve(ctx context.Context, route, token string) (navigation.State, error)
}

type Handler struct {
	log      *slog.Logger
	sessions *sessions.Registry
	handoffs Resolver
}

func New(log *slog.Logger, reg *sessions.Registry, handoffs Resolver) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, sessions: reg, handoffs: handoffs}
}

// Routes registers the session and results endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.mount)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Delete("/", h.unmount)
		r.Post("/shapes", h.drawn)
		r.Post("/submit", h.submit)
		r.Post("/goto", h.goTo)
		r.Post("/marker", h.marker)
	})
	r.Get("/farm-view/{stateName}", h.results)
}

type mountRequest struct {
	StateName string `json:"state_name"`
}

func (h *Handler) mount(w http.ResponseWriter, r *http.Request) {
	var req mountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.StateName)
	if name == "" {
		writeError(w, r, h.log, http.StatusBadRequest, "missing required field: state_name")
		return
	}
	s, err := h.sessions.Mount(name)
	if err != nil {
		h.log.ErrorContext(r.Context(), "mount session", "err", err)
		writeError(w, r, h.log, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, r, h.log, http.StatusCreated, s.Snapshot())
}

// session resolves {id} or writes a 404.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*selection.Session, *http.Request, bool) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, r, h.log, http.StatusNotFound, err.Error())
		return nil, r, false
	}
	return s, r.WithContext(logger.WithSessionID(r.Context(), id)), true
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, r, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, s.Snapshot())
}

func (h *Handler) unmount(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Unmount(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) drawn(w http.ResponseWriter, r *http.Request) {
	s, r, ok := h.session(w, r)
	if !ok {
		return
	}
	var shape model.Shape
	if err := decode(r, &shape); err != nil {
		writeError(w, r, h.log, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.OnRegionDrawn(shape); err != nil {
		writeError(w, r, h.log, statusFor(err), err.Error())
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, s.Snapshot())
}

type submitResponse struct {
	Location string             `json:"location,omitempty"`
	Error    string             `json:"error,omitempty"`
	Snapshot selection.Snapshot `json:"snapshot"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	s, r, ok := h.session(w, r)
	if !ok {
		return
	}
	loc, err := s.Submit(r.Context())
	if err != nil {
		writeJSON(w, r, h.log, statusFor(err), submitResponse{Error: err.Error(), Snapshot: s.Snapshot()})
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, submitResponse{Location: loc, Snapshot: s.Snapshot()})
}

type gotoRequest struct {
	Lat textField `json:"lat"`
	Lng textField `json:"lng"`
}

type gotoResponse struct {
	Moved    bool               `json:"moved"`
	Snapshot selection.Snapshot `json:"snapshot"`
}

// goTo always answers 200; unreadable or invalid input just doesn't move the map.
func (h *Handler) goTo(w http.ResponseWriter, r *http.Request) {
	s, r, ok := h.session(w, r)
	if !ok {
		return
	}
	var req gotoRequest
	if err := decode(r, &req); err != nil {
		h.log.DebugContext(r.Context(), "ignoring unreadable goto body", "err", err)
		writeJSON(w, r, h.log, http.StatusOK, gotoResponse{Snapshot: s.Snapshot()})
		return
	}
	moved := s.GoTo(string(req.Lat), string(req.Lng))
	writeJSON(w, r, h.log, http.StatusOK, gotoResponse{Moved: moved, Snapshot: s.Snapshot()})
}

func (h *Handler) marker(w http.ResponseWriter, r *http.Request) {
	s, r, ok := h.session(w, r)
	if !ok {
		return
	}
	var p model.LatLng
	if err := decode(r, &p); err != nil {
		writeError(w, r, h.log, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.SetMarker(p); err != nil {
		writeError(w, r, h.log, statusFor(err), err.Error())
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, s.Snapshot())
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	route := navigation.ResultsRoute(chi.URLParam(r, "stateName"))
	state, err := h.handoffs.Resolve(r.Context(), route, r.URL.Query().Get(navigation.HandoffParam))
	if err != nil {
		if !errors.Is(err, navigation.ErrNotFound) {
			h.log.ErrorContext(r.Context(), "resolve handoff", "route", route, "err", err)
		}
		writeError(w, r, h.log, statusFor(err), err.Error())
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, state)
}

func statusFor(err error) int {
	var se *submitter.SubmissionError
	switch {
	case errors.Is(err, model.ErrNotRectangle), errors.Is(err, model.ErrMalformedRegion),
		errors.Is(err, model.ErrBadCoordinate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, selection.ErrNoRegion),
		errors.Is(err, selection.ErrSubmitInFlight),
		errors.Is(err, selection.ErrNavigated),
		errors.Is(err, selection.ErrStale):
		return http.StatusConflict
	case errors.Is(err, selection.ErrUnmounted):
		return http.StatusGone
	case errors.Is(err, navigation.ErrNotFound), errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
