// ABOUTME: HTTP handlers serving the plugin repository API over the store
// ABOUTME: Implements list, get, create, update and batch delete with envelope payloads

package api

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"net/url"

	"github.com/2389/pluginadmin/internal/errors"
	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/store"
	"github.com/2389/pluginadmin/internal/wire"
	"github.com/go-chi/chi/v5"
)

// Repository is the persistence the handlers need. *store.Store implements it.
type Repository interface {
	ListPlugins(ctx context.Context, search string) ([]wire.Plugin, error)
	GetPlugin(ctx context.Context, name string) (wire.Plugin, error)
	CreatePlugin(ctx context.Context, p wire.Plugin) (wire.Plugin, error)
	UpdatePlugin(ctx context.Context, p wire.Plugin) (wire.Plugin, error)
	DeletePlugins(ctx context.Context, plugins []wire.Plugin) error
}

type Handlers struct {
	repo Repository
}

func NewHandlers(repo Repository) *Handlers {
	return &Handlers{repo: repo}
}

// RegisterRoutes mounts the repository API on r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/plugins", h.listPlugins)
	r.Post("/plugins", h.createPlugin)
	r.Put("/plugins", h.updatePlugin)
	r.Post("/plugins/delete", h.deletePlugins)
	r.Get("/plugins/{name}", h.getPlugin)
}

// listPlugins handles GET /plugins
func (h *Handlers) listPlugins(w http.ResponseWriter, r *http.Request) {
	plugins, err := h.repo.ListPlugins(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.storeError(w, "Failed to list plugins", err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, wire.NewList(plugins))
}

// getPlugin handles GET /plugins/{name}
func (h *Handlers) getPlugin(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		errors.WriteErrorWithDetails(w, http.StatusBadRequest, errors.ErrInvalidBody, "Invalid plugin name", err.Error())
		return
	}
	p, err := h.repo.GetPlugin(r.Context(), name)
	if err != nil {
		h.storeError(w, "Failed to load plugin", err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, wire.Envelope{Plugin: p})
}

// createPlugin handles POST /plugins
func (h *Handlers) createPlugin(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePlugin(w, r)
	if !ok {
		return
	}
	created, err := h.repo.CreatePlugin(r.Context(), p)
	if err != nil {
		h.storeError(w, "Failed to create plugin", err)
		return
	}
	log.Printf("Created plugin %s (%d parameters)", created.Name, len(created.Parameters))
	errors.WriteJSON(w, http.StatusCreated, wire.Envelope{Plugin: created})
}

// updatePlugin handles PUT /plugins
func (h *Handlers) updatePlugin(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePlugin(w, r)
	if !ok {
		return
	}
	updated, err := h.repo.UpdatePlugin(r.Context(), p)
	if err != nil {
		h.storeError(w, "Failed to update plugin", err)
		return
	}
	log.Printf("Updated plugin %s (%d parameters)", updated.Name, len(updated.Parameters))
	errors.WriteJSON(w, http.StatusOK, wire.Envelope{Plugin: updated})
}

// deletePlugins handles POST /plugins/delete and responds with the plugins
// that remain.
func (h *Handlers) deletePlugins(w http.ResponseWriter, r *http.Request) {
	var req wire.List
	if err := wire.Decode(r.Body, &req); err != nil {
		errors.WriteErrorWithDetails(w, http.StatusBadRequest, errors.ErrInvalidBody, "Invalid request body", err.Error())
		return
	}
	doomed := req.Records()
	if err := h.repo.DeletePlugins(r.Context(), doomed); err != nil {
		h.storeError(w, "Failed to delete plugins", err)
		return
	}
	if len(doomed) > 0 {
		log.Printf("Deleted %d plugins", len(doomed))
	}

	remaining, err := h.repo.ListPlugins(r.Context(), "")
	if err != nil {
		h.storeError(w, "Failed to list plugins", err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, wire.NewList(remaining))
}

// nameParam returns the decoded {name} parameter. chi matches on RawPath
// when the request has one, which leaves the parameter escaped.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

// decodePlugin reads a {"plugin": {...}} body and applies the submission
// rules. It writes the error response itself when it returns false.
func decodePlugin(w http.ResponseWriter, r *http.Request) (wire.Plugin, bool) {
	var env wire.Envelope
	if err := wire.Decode(r.Body, &env); err != nil {
		errors.WriteErrorWithDetails(w, http.StatusBadRequest, errors.ErrInvalidBody, "Invalid request body", err.Error())
		return wire.Plugin{}, false
	}
	if err := record.ValidatePayload(env.Plugin); err != nil {
		writeValidationError(w, err)
		return wire.Plugin{}, false
	}
	return env.Plugin, true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *record.ValidationError
	if !stderrors.As(err, &verr) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrValidationFailed, err.Error())
		return
	}
	first := verr.First()
	resp := errors.ErrorResponse{
		Code:    errors.ErrValidationFailed,
		Message: first.Message(),
		Status:  http.StatusBadRequest,
		Field:   first.Field,
	}
	for _, v := range verr.Violations {
		resp.Fields = append(resp.Fields, errors.FieldError{Field: v.Field, Code: string(v.Code)})
	}
	errors.Write(w, resp)
}

// storeError maps store sentinels to HTTP statuses.
func (h *Handlers) storeError(w http.ResponseWriter, message string, err error) {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		errors.WriteErrorWithDetails(w, http.StatusNotFound, errors.ErrNotFound, "Plugin not found", err.Error())
	case stderrors.Is(err, store.ErrConflict):
		errors.WriteErrorWithDetails(w, http.StatusConflict, errors.ErrConflict, "Plugin already exists", err.Error())
	default:
		log.Printf("%s: %v", message, err)
		errors.WriteErrorWithDetails(w, http.StatusInternalServerError, errors.ErrDatabaseError, message, err.Error())
	}
}
