package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "polymigrate/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{ProblemNotFound, "Problem not found"},
		{StorageWriteFailed, "Storage write failed"},
		{MigrationPrecondition, "Migration precondition failed"},
		{ErrorCode(99999), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{ValidationFailed, 400},
		{ProblemNotFound, 404},
		{MigrationPrecondition, 412},
		{TooManyRequests, 429},
		{Timeout, 504},
		{StorageWriteFailed, 500},
		{PolygonRemoteError, 502},
		{PolygonTransportError, 502},
		{StorageNotConfigured, 503},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ProblemNotFound, "problem %s not found", "123456")

	want := "problem 123456 not found"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if err.Code != ProblemNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ProblemNotFound)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(originalErr, DatabaseError)

	if wrappedErr.Code != DatabaseError {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, DatabaseError)
	}
	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}
	if Wrap(nil, DatabaseError) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := New(PolygonRemoteError).WithMessage("no such problem")
	outer := Wrap(inner, DatabaseError)

	if outer.Code != PolygonRemoteError {
		t.Errorf("Code = %v, want %v", outer.Code, PolygonRemoteError)
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "nil error",
			err:  nil,
			want: Success,
		},
		{
			name: "custom error",
			err:  New(StorageWriteFailed),
			want: StorageWriteFailed,
		},
		{
			name: "custom error behind fmt wrapping",
			err:  fmt.Errorf("step failed: %w", New(MigrationPrecondition)),
			want: MigrationPrecondition,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: InternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(ProblemNotFound)

	if !Is(err, ProblemNotFound) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, DatabaseError) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(nil, ProblemNotFound) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("BadRequest", func(t *testing.T) {
		err := BadRequest("invalid input")
		if err.Code != InvalidParams {
			t.Error("BadRequest should use InvalidParams code")
		}
	})

	t.Run("PreconditionError", func(t *testing.T) {
		err := PreconditionError("problem %s is not in the database", "42")
		if err.Code != MigrationPrecondition {
			t.Error("PreconditionError should use MigrationPrecondition code")
		}
		if err.Error() != "problem 42 is not in the database" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError("difficulty", "must be easy, medium or hard")
		if err.Code != ValidationFailed {
			t.Error("ValidationError should use ValidationFailed code")
		}
		if err.Details["field"] != "difficulty" {
			t.Error("Field detail not set")
		}
	})
}
