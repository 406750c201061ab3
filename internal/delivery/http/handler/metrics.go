package handler

import (
	"net/http"

	"github.com/user/perfwatch/internal/delivery/http/request"
	"github.com/user/perfwatch/internal/delivery/http/response"
	"github.com/user/perfwatch/internal/entity"
)

// HandleAverageMetrics serves bucket averages for a period and scope.
func (h *Handler) HandleAverageMetrics(w http.ResponseWriter, r *http.Request) {
	q, err := request.ParseAverageQuery(r.URL.Query())
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	series, err := h.deps.Metrics.GetAverageMetrics(r.Context(), q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, series)
}

func (h *Handler) HandlePageMetrics(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.uuidParam(w, r, "page_id")
	if !ok {
		return
	}
	q, err := request.ParsePageMetricsQuery(r.URL.Query())
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	series, err := h.deps.Metrics.GetPageMetrics(r.Context(), pageID, q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, series)
}

// HandleCollectAll enqueues the home page of every active channel.
func (h *Handler) HandleCollectAll(w http.ResponseWriter, r *http.Request) {
	h.collect(w, r, entity.AllActiveChannels())
}

// HandleCollectChannel enqueues every page of one channel.
func (h *Handler) HandleCollectChannel(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "channel_id")
	if !ok {
		return
	}
	h.collect(w, r, entity.OneChannel(channelID))
}

func (h *Handler) HandleCollectPage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "channel_id")
	if !ok {
		return
	}
	pageID, ok := h.uuidParam(w, r, "page_id")
	if !ok {
		return
	}
	h.collect(w, r, entity.OnePage(channelID, pageID))
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request, scope entity.DispatchScope) {
	report, err := h.deps.Dispatcher.Dispatch(r.Context(), scope)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, response.NewCollectResponse(report))
}
