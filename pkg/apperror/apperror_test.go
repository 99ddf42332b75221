package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"op and err", &Error{Op: "repo.monitor.create", Err: base}, "repo.monitor.create: boom"},
		{"err only", &Error{Err: base}, "boom"},
		{"op only", &Error{Op: "repo.monitor.create"}, "repo.monitor.create"},
		{"empty", &Error{}, "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("append: %w", &Error{Kind: InvalidResult, Op: "history.memory.append"})

	if !IsKind(err, InvalidResult) {
		t.Fatal("expected wrapped error to match InvalidResult")
	}
	if IsKind(err, NotFound) {
		t.Fatal("did not expect NotFound")
	}
	if HTTPStatus(err) != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d, want 500", HTTPStatus(err))
	}
}

func TestWithHelpersCopy(t *testing.T) {
	orig := &Error{Kind: InvalidInput, Op: "a", Message: "first"}
	cp := orig.WithMessage("second").WithOp("b")

	if orig.Message != "first" || orig.Op != "a" {
		t.Fatalf("original mutated: %+v", orig)
	}
	if cp.Message != "second" || cp.Op != "b" || cp.Kind != InvalidInput {
		t.Fatalf("unexpected copy: %+v", cp)
	}
	if GetHTTPStatus(cp.Kind) != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", GetHTTPStatus(cp.Kind))
	}
}
