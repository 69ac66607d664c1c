package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// validationMessages maps validation causes to client messages.
var validationMessages = []struct {
	err     error
	message string
}{
	{core.ErrMissingEmail, "Email is required"},
	{core.ErrInvalidEmail, "Invalid email"},
	{core.ErrMissingFields, "Missing required fields"},
	{core.ErrInvalidAmount, "Invalid amount"},
	{core.ErrMissingCategory, "Category required for expenses"},
	{core.ErrIndexOutOfRange, "Invalid transaction index"},
	{core.ErrInvalidType, "Invalid transaction type"},
	{core.ErrInvalidDate, "Invalid transaction date"},
	{core.ErrUnknownCategory, "Unknown expense category"},
}

// errorResponse classifies err. details is attached to 500 responses only.
func errorResponse(err error, details string) *JSONResponseBuilder {
	switch {
	case errors.Is(err, errMalformedBody):
		return BadRequestError("Invalid request body")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("User not found")
	case core.IsValidation(err):
		for _, m := range validationMessages {
			if errors.Is(err, m.err) {
				return BadRequestError(m.message)
			}
		}
		var ve *core.ValidationError
		errors.As(err, &ve)
		return ErrorResponse(http.StatusBadRequest, "Invalid value", ve.Error())
	default:
		return InternalServerError(err.Error(), details)
	}
}

// writeError logs err at the boundary and writes its response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error, details string) {
	resp := errorResponse(err, details)
	logger := log.FromContext(r.Context())
	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, op, nil)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldStatusCode, resp.statusCode)
	}
	resp.Write(w)
}
