package handler

import (
	"net/http"

	"github.com/user/perfwatch/internal/delivery/http/request"
)

func (h *Handler) HandleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req request.CreateProviderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p := req.Provider()
	if err := h.deps.Providers.Create(r.Context(), p); err != nil {
		h.handleError(w, r, err)
		return
	}
	created(w, "/providers/"+p.ID.String())
}

func (h *Handler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.deps.Providers.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if providers == nil {
		providers = emptyProviders
	}
	h.writeJSON(w, http.StatusOK, providers)
}

func (h *Handler) HandleGetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.deps.Providers.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req request.UpdateProviderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.deps.Providers.Update(r.Context(), id, req.Update()); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Providers.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
