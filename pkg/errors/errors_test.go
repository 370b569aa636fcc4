package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidConfig, "stride must be > 0, got %d", -1)

	if err.Code != ErrCodeInvalidConfig {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeInvalidConfig)
	}
	if err.Message != "stride must be > 0, got -1" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("Cause = %v, want nil", err.Cause)
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrCodeGraphShape, "adjacency not square"),
			want: "GRAPH_SHAPE: adjacency not square",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("disk full"), ErrCodeStore, "writing record 7"),
			want: "STORE_ERROR: writing record 7: disk full",
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%s: Error() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := Wrap(cause, ErrCodeStore, "context")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeInvalidConfig, "bad"), ErrCodeInvalidConfig, true},
		{"different code", New(ErrCodeInvalidConfig, "bad"), ErrCodeGraphShape, false},
		{"plain error", stderrors.New("plain"), ErrCodeInternal, false},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeGraphShape, "inner")), ErrCodeGraphShape, true},
	}

	for _, tt := range tests {
		if got := Is(tt.err, tt.code); got != tt.want {
			t.Errorf("%s: Is() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGetCode(t *testing.T) {
	if code := GetCode(New(ErrCodeNotFound, "missing")); code != ErrCodeNotFound {
		t.Errorf("GetCode = %q, want %q", code, ErrCodeNotFound)
	}
	if code := GetCode(stderrors.New("plain")); code != "" {
		t.Errorf("GetCode on plain error = %q, want empty", code)
	}
}

func TestUserMessage(t *testing.T) {
	if msg := UserMessage(New(ErrCodeInvalidConfig, "stride must be > 0")); msg != "stride must be > 0" {
		t.Errorf("UserMessage = %q", msg)
	}
	if msg := UserMessage(stderrors.New("plain failure")); msg != "plain failure" {
		t.Errorf("UserMessage on plain error = %q", msg)
	}
}
