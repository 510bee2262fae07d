package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestDefaultStatusCode(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeRequiredField, http.StatusUnprocessableEntity},
		{CodeInvalidIntent, http.StatusUnprocessableEntity},
		{CodeInvalidFormat, http.StatusBadRequest},
		{CodeComputationNotFound, http.StatusNotFound},
		{CodeMXEConnectionFailed, http.StatusServiceUnavailable},
		{CodeComputationTimeout, http.StatusGatewayTimeout},
		{CodeReceiptVerificationFailed, http.StatusBadGateway},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code).StatusCode; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNew_Options(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New(CodeLedgerUnavailable, WithCause(cause), WithContext("stage: record"), WithStatusCode(http.StatusTeapot))

	if err.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d", err.StatusCode)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}
	if !errors.Is(err, New(CodeLedgerUnavailable)) {
		t.Error("codes should match")
	}
	if got, want := err.Error(), "LEDGER_UNAVAILABLE: Receipt ledger unavailable (context: stage: record)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if New(Code("SOMETHING_NEW")).Message != "SOMETHING_NEW" {
		t.Error("unknown code should fall back to its name")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	sent := New(CodeInvalidIntent, WithContext("max_slices: must be within 1..100"), WithCause(errors.New("secret 42")))
	sent.WithTraceID("4bf92f3577b34da6a3ce929d0e0e4736")

	body, err := json.Marshal(sent.ToResponse())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(body), "secret") {
		t.Fatalf("cause leaked into envelope: %s", body)
	}

	got, ok := FromResponse(http.StatusUnprocessableEntity, body)
	if !ok {
		t.Fatalf("FromResponse rejected %s", body)
	}
	if got.Code != sent.Code || got.Message != sent.Message || got.Context != sent.Context || got.TraceID != sent.TraceID {
		t.Errorf("got %+v, want %+v", got, sent)
	}
	if got.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", got.StatusCode)
	}
}

func TestFromResponse_NotAnEnvelope(t *testing.T) {
	for _, body := range []string{"", "<html>", `{"detail":"x"}`, `{"error":{}}`} {
		if _, ok := FromResponse(http.StatusBadGateway, []byte(body)); ok {
			t.Errorf("FromResponse(%q) accepted", body)
		}
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(nil) != CodeUnknownError || GetCode(errors.New("x")) != CodeUnknownError {
		t.Error("non-app errors should be UNKNOWN_ERROR")
	}
	wrapped := errors.Join(errors.New("outer"), NotFound(CodeComputationNotFound, "computation abc"))
	if GetCode(wrapped) != CodeComputationNotFound || !IsAppError(wrapped) {
		t.Errorf("GetCode(wrapped) = %s", GetCode(wrapped))
	}
}
