package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/server/dto"
	"github.com/maruel/reportdb/internal/server/handlers"
	"github.com/maruel/reportdb/internal/server/ratelimit"
)

// Wrap adapts a typed handler to http.Handler.
//
// The function must have signature func(context.Context, *In) (*Out, error).
// The JSON body is decoded into In, then fields tagged `path:"name"` and
// `query:"name"` are filled from the URL, and In is validated before fn runs.
// Out is written as JSON; an error is written as a dto.ErrorResponse.
//
// Example:
//
//	type GetReportRequest struct {
//	    Slug string `path:"slug"`
//	}
//
//	func (h *ReportHandler) GetReport(ctx context.Context, req *dto.GetReportRequest) (*dto.ReportResponse, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *handlers.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg) {
			return
		}
		populatePathParams(r, input)
		populateQueryParams(r, input)
		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}
		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *handlers.Config) bool {
	if cfg != nil && cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeAPIError(w, dto.PayloadTooLarge(mbe.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeAPIError(w, dto.BadRequest("Failed to read request body"))
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	if err := d.Decode(input); err != nil {
		slog.WarnContext(ctx, "Failed to decode request body", "err", err)
		writeAPIError(w, dto.BadRequest("Invalid request body"))
		return false
	}
	return true
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := dto.ErrorCodeInternal
		var details map[string]any
		var ews dto.ErrorWithStatus
		if errors.As(err, &ews) {
			statusCode = ews.StatusCode()
			errorCode = ews.Code()
			details = ews.Details()
		}
		if statusCode >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		} else {
			slog.InfoContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		}
		writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// populatePathParams fills the fields of input tagged `path:"name"` from
// r.PathValue. Supported kinds are string, int and ksid.ID. An int that does
// not parse is set to -1 so that index validation rejects it; an invalid
// ksid.ID is left zero.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	idType := reflect.TypeFor[ksid.ID]()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		v := r.PathValue(tag)
		if v == "" {
			continue
		}
		switch {
		case field.Type == idType:
			if id, err := ksid.Parse(v); err == nil {
				elem.Field(i).Set(reflect.ValueOf(id))
			}
		case field.Type.Kind() == reflect.String:
			elem.Field(i).SetString(v)
		case field.Type.Kind() == reflect.Int:
			n, err := strconv.Atoi(v)
			if err != nil {
				n = -1
			}
			elem.Field(i).SetInt(int64(n))
		}
	}
}

// populateQueryParams fills the fields of input tagged `query:"name"` from the
// URL query.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		fv := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fv.SetString(v)
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				fv.SetInt(int64(n))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(v); err == nil {
				fv.SetBool(b)
			}
		default:
			if u, ok := fv.Addr().Interface().(encoding.TextUnmarshaler); ok {
				_ = u.UnmarshalText([]byte(v))
			}
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return val.Elem(), true
}

// handleValidationError handles a validation error from a request's Validate method.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusBadRequest
	errorCode := dto.ErrorCodeValidationFailed
	var details map[string]any
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		errorCode = ews.Code()
		details = ews.Details()
	}
	slog.InfoContext(ctx, "Validation error", "err", err, "statusCode", statusCode, "code", errorCode)
	writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
}

func writeAPIError(w http.ResponseWriter, err *dto.APIError) {
	writeErrorResponseWithCode(w, err.StatusCode(), err.Code(), err.Error(), err.Details())
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := dto.ErrorResponse{
		Error:   dto.ErrorDetails{Code: code, Message: message},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}

// writeRateLimitError writes a 429 rate limit error response.
func writeRateLimitError(w http.ResponseWriter, result ratelimit.Result) {
	writeAPIError(w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
}
