package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/spimex-api/internal/api/shared"
	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/service"
	"github.com/phrazzld/spimex-api/internal/store"
)

// Client-facing messages.
const (
	msgMissingFilter   = "At least one of the trading parameters must be filled in."
	msgInvalidLimit    = "The limit must be a positive number."
	msgInvalidDays     = "The days must be a positive number."
	msgInvalidDate     = "Dates must match the format YYYY-MM-DD."
	msgMigrationNeeded = "Migration needs to be done."
	msgUnexpected      = "An unexpected error occurred"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingFilter),
		errors.Is(err, store.ErrTableMissing),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgUnexpected
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrMissingFilter):
		return msgMissingFilter
	case errors.Is(err, service.ErrInvalidLimit):
		return msgInvalidLimit
	case errors.Is(err, service.ErrInvalidDays):
		return msgInvalidDays
	case errors.Is(err, service.ErrInvalidDate):
		return msgInvalidDate
	case errors.Is(err, store.ErrTableMissing):
		return msgMigrationNeeded
	case errors.As(err, &verrs):
		return SanitizeValidationError(err)
	case errors.Is(err, service.ErrInvalidFilter):
		return "Invalid query parameters"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	default:
		return msgUnexpected
	}
}

// HandleAPIError writes the status and message for err. A non-empty
// message overrides the derived one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	errMsg := err.Error()
	// Example: "Key: 'DynamicsParams.oil_id' Error:Field validation for 'oil_id' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 5 {
				return fmt.Sprintf("Invalid %s: %s", fieldParts[1], getValidationTagMessage(fieldParts[3]))
			}
			if len(fieldParts) >= 3 {
				return fmt.Sprintf("Invalid %s", fieldParts[1])
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return "validation failed"
	}
}
