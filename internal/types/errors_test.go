package types

import (
	"errors"
	"fmt"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeFutureRequest,
		Message: "forecast data is not available",
	}

	expected := "input_future_request: forecast data is not available"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies the error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("dial tcp: i/o timeout")
	appErr := NewAppError(ErrCodeConnection, "could not download", underlying)

	if !errors.Is(appErr, underlying) {
		t.Errorf("errors.Is should find the underlying error")
	}
	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", appErr.Unwrap(), underlying)
	}
}

func TestIsCode(t *testing.T) {
	appErr := NewAppErrorWithDetails(ErrCodeVerification, "mismatch", nil, map[string]any{"path": "/tmp/x.didb"})
	wrapped := fmt.Errorf("converting unit: %w", appErr)

	if !IsCode(wrapped, ErrCodeVerification) {
		t.Errorf("IsCode should match through wrapping")
	}
	if IsCode(wrapped, ErrCodeConnection) {
		t.Errorf("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), ErrCodeVerification) {
		t.Errorf("IsCode should be false for non-AppError")
	}

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("AsAppError should extract the AppError")
	}
	if got.Detail("path") != "/tmp/x.didb" {
		t.Errorf("Detail(path) = %q", got.Detail("path"))
	}
	if got.Detail("missing") != "" {
		t.Errorf("Detail(missing) should be empty")
	}
}

// TestWithDetailsDoesNotMutate verifies WithDetails returns a copy.
func TestWithDetailsDoesNotMutate(t *testing.T) {
	orig := NewAppErrorWithDetails(ErrCodeConnection, "failed", nil, map[string]any{"url": "http://a"})
	cp := orig.WithDetails(map[string]any{"stage": "fetch"})

	if _, ok := orig.Details["stage"]; ok {
		t.Errorf("original details were mutated")
	}
	if cp.Detail("url") != "http://a" || cp.Detail("stage") != "fetch" {
		t.Errorf("copy details = %v", cp.Details)
	}
}

func TestErrorCodeRetryable(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeConnection, true},
		{ErrCodeUpstreamRateLimit, true},
		{ErrCodeUnsupportedScheme, false},
		{ErrCodeVerification, false},
		{ErrCodeFutureRequest, false},
		{ErrCodeInputType, false},
	}
	for _, tt := range tests {
		if got := tt.code.Retryable(); got != tt.want {
			t.Errorf("%s.Retryable() = %v, want %v", tt.code, got, tt.want)
		}
	}
}
