package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/bucketlist/internal/service"
)

// ItemHandler serves the items inside the caller's bucketlists.
type ItemHandler struct {
	items    *service.ItemService
	pageSize int
	logger   *slog.Logger
}

func NewItemHandler(items *service.ItemService, pageSize int, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, pageSize: pageSize, logger: logger}
}

type createItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// updateItemRequest uses pointers so an absent field is left unchanged.
type updateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Done        *bool   `json:"done"`
}

// HandleListAll returns every item across the caller's bucketlists.
//
// HTTP: GET /bucketlists/items?limit=N
func (h *ItemHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.items.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, r, "items", items, h.pageSize)
}

// HandleListForBucketlist returns the items of one bucketlist.
//
// HTTP: GET /bucketlists/{id}/items?limit=N
func (h *ItemHandler) HandleListForBucketlist(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bucketlistID, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.items.ListForBucketlist(r.Context(), owner, bucketlistID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, r, "items", items, h.pageSize)
}

// HandleCreate adds an item to a bucketlist.
//
// HTTP: POST /bucketlists/{id}/items
// REQUEST BODY: {"name": "Visit Lamu", "description": "by dhow", "done": false}
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bucketlistID, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.items.Create(r.Context(), owner, bucketlistID, service.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Done:        req.Done,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleGet returns one item.
//
// HTTP: GET /bucketlists/items/{id}
func (h *ItemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.items.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleUpdate edits an item; only the fields present in the body change.
//
// HTTP: PUT /bucketlists/items/{id}
// REQUEST BODY: any of {"name", "description", "done"}
func (h *ItemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.items.Update(r.Context(), owner, id, service.UpdateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Done:        req.Done,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleDelete removes an item.
//
// HTTP: DELETE /bucketlists/items/{id}
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.items.Delete(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("item removed", slog.Int64("id", id), slog.Int64("owner_id", owner))
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("item %d deleted", id)})
}
