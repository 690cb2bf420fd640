package watcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/logger"
)

// QueryStore is the read-write side of the saved query table.
type QueryStore interface {
	Source
	Get(ctx context.Context, id string) (SavedQuery, error)
	Save(ctx context.Context, q SavedQuery) error
	Delete(ctx context.Context, id string) error
}

// Handler manages saved queries over HTTP. Every change triggers a reload
// so it takes effect for the next document.
type Handler struct {
	store   QueryStore
	watcher *Watcher
	logger  *slog.Logger
}

func NewHandler(store QueryStore, w *Watcher) *Handler {
	return &Handler{
		store:   store,
		watcher: w,
		logger:  slog.Default().With("component", "watcher-handler"),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	queries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing saved queries failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "listing saved queries failed")
		return
	}
	if queries == nil {
		queries = []SavedQuery{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"queries": queries,
		"active":  h.watcher.QueryCount(),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

// Save stores the query in the request body after checking that it
// compiles.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var q SavedQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	q.ID = strings.TrimSpace(q.ID)
	if q.ID == "" || strings.TrimSpace(q.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "id and query are required")
		return
	}
	if _, err := h.watcher.compiler.Compile(q.Query); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Save(ctx, q); err != nil {
		log.Error("saving query failed", "query_id", q.ID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "saving query failed")
		return
	}
	h.reload(ctx)
	h.writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := h.store.Delete(ctx, id); err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("deleting query failed", "query_id", id, "error", err)
		}
		h.writeError(w, status, err.Error())
		return
	}
	h.reload(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reload(ctx context.Context) {
	if err := h.watcher.Reload(ctx); err != nil {
		h.logger.Error("reload after change failed", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
