package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorsMapToStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Doctor"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad input", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad id"), CodeInvalidInput, http.StatusBadRequest},
		{"forbidden", Forbidden("not yours"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("already exists"), CodeConflict, http.StatusConflict},
		{"slot unavailable", SlotUnavailable("taken"), CodeSlotUnavailable, http.StatusConflict},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("too slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Image upload"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Internal("Failed to create doctor", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestIsCode(t *testing.T) {
	err := SlotUnavailable("taken")

	if !IsCode(err, CodeSlotUnavailable) {
		t.Error("expected IsCode to match SLOT_UNAVAILABLE")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("IsCode must not match a different code")
	}
	if IsCode(fmt.Errorf("plain"), CodeInternal) {
		t.Error("IsCode must not match plain errors")
	}
}

func TestAsAppErrorWrapsUnknownErrors(t *testing.T) {
	appErr := AsAppError(fmt.Errorf("driver exploded"))

	if appErr.Code != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR for unknown error, got %s", appErr.Code)
	}
	if appErr.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", appErr.StatusCode())
	}
}

func TestNotFoundWithIDCarriesDetails(t *testing.T) {
	err := NotFoundWithID("Doctor", "65f000000000000000000001")

	if err.Details["id"] != "65f000000000000000000001" {
		t.Errorf("expected id detail, got %v", err.Details)
	}
}
