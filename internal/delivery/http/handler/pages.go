package handler

import (
	"net/http"

	"github.com/user/perfwatch/internal/delivery/http/request"
	"github.com/user/perfwatch/internal/entity"
)

var (
	emptyChannels  = []*entity.Channel{}
	emptyPages     = []*entity.Page{}
	emptyProviders = []*entity.Provider{}
)

func (h *Handler) HandleCreatePage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req request.CreatePageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	page := req.Page()
	if err := h.deps.Pages.Create(r.Context(), channelID, page); err != nil {
		h.handleError(w, r, err)
		return
	}
	created(w, "/channels/"+channelID.String()+"/pages/"+page.ID.String())
}

func (h *Handler) HandleListPages(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	pages, err := h.deps.Pages.List(r.Context(), channelID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if pages == nil {
		pages = emptyPages
	}
	h.writeJSON(w, http.StatusOK, pages)
}

func (h *Handler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	pageID, ok := h.uuidParam(w, r, "page_id")
	if !ok {
		return
	}
	page, err := h.deps.Pages.Get(r.Context(), channelID, pageID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleUpdatePage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	pageID, ok := h.uuidParam(w, r, "page_id")
	if !ok {
		return
	}
	var req request.UpdatePageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.deps.Pages.Update(r.Context(), channelID, pageID, req.Update()); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeletePage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}
	pageID, ok := h.uuidParam(w, r, "page_id")
	if !ok {
		return
	}
	if err := h.deps.Pages.Delete(r.Context(), channelID, pageID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
