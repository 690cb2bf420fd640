// Package handler accepts documents over HTTP and publishes them as ingest
// events for the indexer and the watcher.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/logger"
)

// IngestResponse is returned once a document has been queued.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ShardID    int    `json:"shard_id"`
}

type Handler struct {
	publisher kafka.Publisher
	sections  *section.Registry
	numShards int
	logger    *slog.Logger
}

func New(pub kafka.Publisher, sections *section.Registry, numShards int) *Handler {
	return &Handler{
		publisher: pub,
		sections:  sections,
		numShards: numShards,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var event ingestion.IngestEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestEvent(&event, h.sections); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	event.IngestedAt = time.Now().UTC()

	if err := h.publisher.Publish(ctx, kafka.Event{Key: event.DocumentID, Type: ingestion.IngestEventType, Value: event}); err != nil {
		log.Error("ingestion failed", "doc_id", event.DocumentID, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "ingestion failed")
		return
	}
	resp := IngestResponse{
		DocumentID: event.DocumentID,
		Status:     "QUEUED",
		ShardID:    shard.ShardFor(event.DocumentID, h.numShards),
	}
	log.Info("document queued", "doc_id", resp.DocumentID, "shard_id", resp.ShardID)
	h.writeJSON(w, http.StatusAccepted, resp)
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
