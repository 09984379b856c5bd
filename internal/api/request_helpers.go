package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
)

// Paging defaults and bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// getUserIDFromContext extracts the authenticated user's UUID from the
// request context, where the authentication middleware put it.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	return shared.UserID(r.Context())
}

// requireUserID is getUserIDFromContext that writes a 401 when the ID is
// missing.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.Unauthorized("authentication required", nil), "")
		return uuid.Nil, false
	}
	return userID, true
}

// decodeAndValidate reads the JSON body into req and validates it, writing a
// 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	log := logger.FromContext(r.Context())

	if err := shared.DecodeJSON(w, r, req); err != nil {
		log.Debug("malformed request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return false
	}
	return true
}

// parsePage reads the zero-based "page" and "size" query parameters.
func parsePage(r *http.Request) (store.Page, error) {
	page := store.Page{Number: 0, Size: DefaultPageSize}
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return store.Page{}, domain.InvalidArgument("page must be a non-negative integer")
		}
		page.Number = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPageSize {
			return store.Page{}, domain.InvalidArgument("size must be between 1 and 100")
		}
		page.Size = n
	}
	return page, nil
}
