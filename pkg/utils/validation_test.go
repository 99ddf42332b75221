package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"pulsewatch/pkg/apperror"
)

type sampleRequest struct {
	Name string `json:"name" validate:"required,notblank"`
	URL  string `json:"url" validate:"required,http_url"`
}

func TestDecodeAndValidate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"site","url":"https://example.com"}`, ""},
		{"blank name", `{"name":"   ","url":"https://example.com"}`, "name must not be blank"},
		{"relative url", `{"name":"site","url":"/health"}`, "url must be an absolute http(s) URL"},
		{"unknown field", `{"name":"site","url":"https://example.com","x":1}`, "malformed request body"},
		{"not json", `nope`, "malformed request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var dst sampleRequest
			err := DecodeAndValidate(r, v, "test.decode", &dst)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperror.IsKind(err, apperror.InvalidInput) {
				t.Fatalf("expected invalid_input, got %v", err)
			}
			var appErr *apperror.Error
			appErr, _ = err.(*apperror.Error)
			if !strings.Contains(appErr.Message, tt.wantErr) {
				t.Errorf("message %q does not contain %q", appErr.Message, tt.wantErr)
			}
		})
	}
}
