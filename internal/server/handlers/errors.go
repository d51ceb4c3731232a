package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/reportdb/internal/jsonldb"
	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/server/dto"
	"github.com/maruel/reportdb/internal/storage"
)

// apiError converts a service error to an API error. Errors that already
// carry a status are returned as is; unclassified errors become a storage
// error with message msg.
func apiError(err error, msg string) error {
	var ews dto.ErrorWithStatus
	var mbe *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ews):
		return err
	case errors.As(err, &mbe):
		return dto.PayloadTooLarge(mbe.Limit)
	case errors.Is(err, jsonldb.ErrTooLarge):
		return dto.NewAPIError(http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge, err.Error())
	case errors.Is(err, models.ErrElementNotFound), errors.Is(err, jsonldb.ErrNotFound):
		return dto.NewAPIError(http.StatusNotFound, dto.ErrorCodeNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateElement):
		return dto.Conflict(err.Error())
	case errors.Is(err, models.ErrEmptyName),
		errors.Is(err, models.ErrInvalidElementType),
		errors.Is(err, models.ErrTypeMismatch),
		errors.Is(err, models.ErrIndexOutOfRange),
		errors.Is(err, models.ErrEmptyHeader),
		errors.Is(err, models.ErrInvalidSize),
		errors.Is(err, models.ErrInvalidSchedule):
		return dto.BadRequest(err.Error())
	case errors.Is(err, storage.ErrUnsupportedAsset):
		return dto.NewAPIError(http.StatusUnsupportedMediaType, dto.ErrorCodeInvalidFormat, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dto.InternalWithError("request canceled", err)
	default:
		return dto.StorageError(msg, err)
	}
}

// writeErrorResponse writes err as a JSON error response. Use this in raw
// http.HandlerFunc handlers that don't go through server.Wrap.
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		errorCode = ews.Code()
		message = ews.Error()
		details = ews.Details()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := dto.ErrorResponse{Error: dto.ErrorDetails{Code: errorCode, Message: message}, Details: details}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

// decodeBody decodes a JSON request body of at most limit bytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v dto.Validatable) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return dto.PayloadTooLarge(mbe.Limit)
		}
		return dto.BadRequest("Invalid request body")
	}
	return v.Validate()
}
