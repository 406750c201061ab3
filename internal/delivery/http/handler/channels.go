package handler

import (
	"net/http"

	"github.com/user/perfwatch/internal/delivery/http/request"
)

func (h *Handler) HandleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req request.CreateChannelRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ch := req.Channel()
	if err := h.deps.Channels.Create(r.Context(), ch); err != nil {
		h.handleError(w, r, err)
		return
	}
	created(w, "/channels/"+ch.ID.String())
}

func (h *Handler) HandleListChannels(w http.ResponseWriter, r *http.Request) {
	filter, err := request.ParseChannelFilter(r.URL.Query())
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	channels, err := h.deps.Channels.List(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if channels == nil {
		channels = emptyChannels
	}
	h.writeJSON(w, http.StatusOK, channels)
}

func (h *Handler) HandleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	ch, err := h.deps.Channels.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ch)
}

func (h *Handler) HandleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req request.UpdateChannelRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.deps.Channels.Update(r.Context(), id, req.Update()); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Channels.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
