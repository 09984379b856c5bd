package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/domain"
)

// MapErrorToStatusCode maps an error kind to exactly one HTTP status. Errors
// without a domain kind are internal.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the client-facing reason carried by a domain
// error. Anything else gets a generic message so that internal details never
// reach the client.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}
	if reason, ok := domain.Reason(err); ok && reason != "" {
		return reason
	}
	switch MapErrorToStatusCode(err) {
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusForbidden:
		return "Access denied"
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusConflict:
		return "Request conflicts with current state"
	case http.StatusUnauthorized:
		return "Invalid credentials"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. fallback, when set,
// replaces the generic message for internal errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError turns a validator error into a short client
// message naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "cardnumber":
		return "invalid card number format"
	case "phone":
		return "invalid phone number format"
	case "personname":
		return "only letters and hyphens are allowed"
	case "money":
		return "must be positive with at most 2 decimal places"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
