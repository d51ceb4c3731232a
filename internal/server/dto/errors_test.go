package dto

import (
	"errors"
	"net/http"
	"testing"

	"github.com/maruel/reportdb/internal/models"
)

func TestAPIError(t *testing.T) {
	t.Run("NewAPIError", func(t *testing.T) {
		err := NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "resource not found")
		if err.StatusCode() != http.StatusNotFound || err.Code() != ErrorCodeNotFound {
			t.Errorf("got %d %s", err.StatusCode(), err.Code())
		}
		if err.Error() != "resource not found" {
			t.Errorf("Error() = %q", err.Error())
		}
		if err.Details() == nil {
			t.Error("Details() is nil")
		}
	})
	t.Run("details on zero value", func(t *testing.T) {
		err := (&APIError{}).WithDetail("a", 1).WithDetails(map[string]any{"b": 2})
		if err.Details()["a"] != 1 || err.Details()["b"] != 2 {
			t.Errorf("Details() = %v", err.Details())
		}
	})
	t.Run("Wrap", func(t *testing.T) {
		orig := errors.New("disk full")
		err := StorageError("failed to save report", orig)
		if !errors.Is(err, orig) {
			t.Error("errors.Is does not see the wrapped error")
		}
		if err.Error() != "failed to save report: disk full" {
			t.Errorf("Error() = %q", err.Error())
		}
		var ews ErrorWithStatus
		if !errors.As(error(err), &ews) || ews.StatusCode() != http.StatusInternalServerError {
			t.Error("not an ErrorWithStatus")
		}
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
		msg    string
	}{
		{"NotFound", NotFound("element"), http.StatusNotFound, ErrorCodeNotFound, "element not found"},
		{"ReportNotFound", ReportNotFound("q4"), http.StatusNotFound, ErrorCodeReportNotFound, "report not found"},
		{"BadRequest", BadRequest("bad"), http.StatusBadRequest, ErrorCodeValidationFailed, "bad"},
		{"MissingField", MissingField("name"), http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: name"},
		{"InvalidField", InvalidField("type", "radar"), http.StatusBadRequest, ErrorCodeInvalidFormat, "Invalid type: radar"},
		{"Conflict", Conflict("taken"), http.StatusConflict, ErrorCodeConflict, "taken"},
		{"ExportFailed", ExportFailed(errors.New("boom")), http.StatusInternalServerError, ErrorCodeExportFailed, "failed to export report: boom"},
		{"RateLimitExceeded", RateLimitExceeded(3), http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded"},
		{"PayloadTooLarge", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "request body too large"},
		{"Internal", Internal("oops"), http.StatusInternalServerError, ErrorCodeInternal, "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code() != tt.code {
				t.Errorf("Code() = %s, want %s", tt.err.Code(), tt.code)
			}
			if tt.err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.msg)
			}
		})
	}
	if got := RateLimitExceeded(3).Details()["retry_after"]; got != 3 {
		t.Errorf("retry_after = %v", got)
	}
	if got := ReportNotFound("q4").Details()["report"]; got != "q4" {
		t.Errorf("report = %v", got)
	}
}

func TestValidate(t *testing.T) {
	text := models.Element{ID: "a", Type: models.ElementText}
	tests := []struct {
		name string
		req  Validatable
		code ErrorCode // empty when valid
	}{
		{"create ok", &CreateReportRequest{Name: "Q4", Elements: []models.Element{text}}, ""},
		{"create blank name", &CreateReportRequest{Name: "  "}, ErrorCodeMissingField},
		{"create bad type", &CreateReportRequest{Name: "Q4", Elements: []models.Element{{ID: "a", Type: "video"}}}, ErrorCodeInvalidFormat},
		{"create duplicate", &CreateReportRequest{Name: "Q4", Elements: []models.Element{text, text}}, ErrorCodeInvalidFormat},
		{"create missing id", &CreateReportRequest{Name: "Q4", Elements: []models.Element{{Type: models.ElementText}}}, ErrorCodeMissingField},
		{"save missing slug", &SaveReportRequest{Name: "Q4"}, ErrorCodeMissingField},
		{"delete zero id", &DeleteReportRequest{}, ErrorCodeInvalidFormat},
		{"add ok", &AddElementRequest{Slug: "q4", Type: models.ElementChart}, ""},
		{"add bad type", &AddElementRequest{Slug: "q4", Type: "video"}, ErrorCodeInvalidFormat},
		{"add bad size", &AddElementRequest{Slug: "q4", Type: models.ElementText, Size: &models.Size{Width: 0, Height: 10}}, ErrorCodeInvalidFormat},
		{"update empty", &UpdateElementRequest{Slug: "q4", ElementID: "a"}, ErrorCodeValidationFailed},
		{"update ok", &UpdateElementRequest{Slug: "q4", ElementID: "a", Style: map[string]any{"color": "#fff"}}, ""},
		{"column blank header", &TableColumnRequest{Slug: "q4", ElementID: "a", Header: " "}, ErrorCodeMissingField},
		{"point missing name", &ChartPointRequest{Slug: "q4", ElementID: "a"}, ErrorCodeMissingField},
		{"export empty", &ExportRequest{}, ""},
		{"schedule missing frequency", &CreateScheduleRequest{ReportSlug: "q4"}, ErrorCodeMissingField},
		{"schedule zero id", &ScheduleRequest{}, ErrorCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ews ErrorWithStatus
			if !errors.As(err, &ews) {
				t.Fatalf("got %v, want an API error", err)
			}
			if ews.Code() != tt.code {
				t.Errorf("code = %s, want %s", ews.Code(), tt.code)
			}
		})
	}
}
