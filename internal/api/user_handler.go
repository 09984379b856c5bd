package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/service"
)

// UserHandler handles user administration requests.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	if users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("user service cannot be nil for UserHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		logger: logger.With(slog.String("component", "user_handler")),
	}
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.CreateUser(r.Context(), service.NewUserRequest{
		Name:       req.Name,
		Surname:    req.Surname,
		Patronymic: req.Patronymic,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, userToResponse(user))
}

// ChangeUserStatus handles PUT /users/status.
func (h *UserHandler) ChangeUserStatus(w http.ResponseWriter, r *http.Request) {
	var req UserStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ChangeUserStatus(r.Context(), req.Phone, req.Status); err != nil {
		HandleAPIError(w, r, err, "Failed to change user status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
