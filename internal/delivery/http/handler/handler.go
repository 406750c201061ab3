package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/delivery/http/response"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/usecase"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// QueueCounter is the read side of a job queue.
type QueueCounter interface {
	Counts(ctx context.Context) (map[entity.JobState]int64, error)
}

// Deps are the use cases and probes the handler serves.
type Deps struct {
	Channels     usecase.ChannelUseCase
	Pages        usecase.PageUseCase
	Providers    usecase.ProviderUseCase
	Metrics      usecase.MetricsUseCase
	Dispatcher   usecase.Dispatcher
	Queues       map[entity.QueueName]QueueCounter
	HealthChecks map[string]HealthCheck
}

type Handler struct {
	deps   Deps
	logger *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{deps: deps, logger: logger.Named("http")}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := response.HealthResponse{}
	healthy := true
	for name, check := range h.deps.HealthChecks {
		if err := check(ctx); err != nil {
			status[name] = "unhealthy"
			healthy = false
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		status[name] = "healthy"
	}

	if !healthy {
		h.writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleQueueCounts(w http.ResponseWriter, r *http.Request) {
	name, ok := entity.ParseQueueName(chi.URLParam(r, "name"))
	queue := h.deps.Queues[name]
	if !ok || queue == nil {
		h.writeJSONError(w, "Unknown queue", http.StatusNotFound)
		return
	}
	counts, err := queue.Counts(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.QueueCountsResponse{Queue: name, Counts: counts})
}

// decode reads a JSON body, rejecting unknown fields.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) uuidParam(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		h.writeJSONError(w, "Invalid "+key, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// handleError maps use case errors to status codes. Anything unknown is
// logged and hidden behind a generic message.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, usecase.ErrResourceNotFound):
		h.writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, usecase.ErrChannelAlreadyExists),
		errors.Is(err, usecase.ErrPageAlreadyExists),
		errors.Is(err, usecase.ErrProviderAlreadyExists):
		h.writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, usecase.ErrNoDataProvided),
		errors.Is(err, usecase.ErrInvalidArgument),
		errors.Is(err, usecase.ErrChannelInactive),
		errors.Is(err, usecase.ErrChannelMissingURL),
		errors.Is(err, usecase.ErrChannelHasNoPages):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// created answers a successful create with an empty body; Location names the new resource.
func created(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
