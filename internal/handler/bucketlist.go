package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/service"
)

// BucketlistHandler serves the caller's bucketlists. Every route runs
// behind auth.RequireAuth and is scoped to the token's user.
type BucketlistHandler struct {
	bucketlists *service.BucketlistService
	pageSize    int
	logger      *slog.Logger
}

func NewBucketlistHandler(bucketlists *service.BucketlistService, pageSize int, logger *slog.Logger) *BucketlistHandler {
	return &BucketlistHandler{bucketlists: bucketlists, pageSize: pageSize, logger: logger}
}

type bucketlistRequest struct {
	Name string `json:"name"`
}

// HandleList returns the caller's bucketlists, each with its items.
//
// HTTP: GET /bucketlists?limit=N
func (h *BucketlistHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lists, err := h.bucketlists.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, r, "bucketlists", lists, h.pageSize)
}

// HandleCreate adds a bucketlist.
//
// HTTP: POST /bucketlists
// REQUEST BODY: {"name": "Travel"}
func (h *BucketlistHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req bucketlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	b, err := h.bucketlists.Create(r.Context(), owner, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleGet returns one bucketlist with its items.
//
// HTTP: GET /bucketlists/{id}
func (h *BucketlistHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	b, err := h.bucketlists.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleUpdate renames a bucketlist. It answers 201 with the updated
// bucketlist, which is what existing clients expect.
//
// HTTP: PUT /bucketlists/{id}
// REQUEST BODY: {"name": "New name"}
func (h *BucketlistHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var req bucketlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	b, err := h.bucketlists.Update(r.Context(), owner, id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleDelete removes a bucketlist and its items.
//
// HTTP: DELETE /bucketlists/{id}
func (h *BucketlistHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.bucketlists.Delete(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("bucketlist %d deleted", id)})
}

// HandleSearch finds the caller's bucketlists by name.
//
// HTTP: GET /search/{value}
//
// No match is a 404 rather than an empty list. Results are never paginated.
func (h *BucketlistHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	query, err := pathParam(r, "value")
	if err != nil {
		writeError(w, err)
		return
	}

	lists, err := h.bucketlists.Search(r.Context(), owner, query)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(lists) == 0 {
		writeError(w, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("no bucketlist matches %q", query),
		})
		return
	}
	writeAll(w, r, "bucketlists", lists)
}
