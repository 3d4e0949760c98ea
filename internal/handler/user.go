package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/bucketlist/internal/service"
)

// UserHandler serves account listings and self-service profile edits.
type UserHandler struct {
	users    *service.UserService
	pageSize int
	logger   *slog.Logger
}

func NewUserHandler(users *service.UserService, pageSize int, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, pageSize: pageSize, logger: logger}
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

// HandleList returns all users ordered by last name.
//
// HTTP: GET /users?limit=N
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, r, "users", users, h.pageSize)
}

// HandleGet returns one user with their bucketlists.
//
// HTTP: GET /user/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate edits the caller's own profile.
//
// HTTP: PUT /user/{id}
// REQUEST BODY: any of {"first_name","last_name","username","email","password"}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), caller, id, service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleDelete removes the caller's own account and everything in it.
//
// HTTP: DELETE /delete_user/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("user %d deleted", id)})
}
