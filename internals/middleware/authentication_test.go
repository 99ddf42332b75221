package middle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulsewatch/internals/security"
	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
)

type stubValidator struct {
	claims *security.RequestClaims
}

func (s stubValidator) ValidateAccessToken(token string) (*security.RequestClaims, error) {
	if token != "valid" {
		return nil, &apperror.Error{Kind: apperror.Unauthorised, Op: "test", Message: "invalid token"}
	}
	return s.claims, nil
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name   string
		header string
		claims *security.RequestClaims
		want   int
	}{
		{"no header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic valid", nil, http.StatusUnauthorized},
		{"invalid token", "Bearer nope", nil, http.StatusUnauthorized},
		{"missing email", "Bearer valid", &security.RequestClaims{UserID: userID.String()}, http.StatusUnauthorized},
		{"bad subject", "Bearer valid", &security.RequestClaims{UserID: "42", Email: "a@example.com"}, http.StatusUnauthorized},
		{"ok", "Bearer valid", &security.RequestClaims{UserID: userID.String(), Email: "a@example.com"}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *AuthenticatedUser
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = UserFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})

			h := NewAuthMiddleware(stubValidator{claims: tt.claims}).Handle(next)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && (seen == nil || seen.UserID != userID) {
				t.Fatalf("expected user in context, got %+v", seen)
			}
		})
	}
}

type recordedObservation struct {
	method, code string
}

type stubRecorder struct {
	got []recordedObservation
}

func (s *stubRecorder) Observe(method, code string, _ time.Duration) {
	s.got = append(s.got, recordedObservation{method, code})
}

func TestMetricsRecordsStatusCode(t *testing.T) {
	rec := &stubRecorder{}
	h := Metrics(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/missing", nil))

	want := []recordedObservation{{"GET", "200"}, {"POST", "404"}}
	if len(rec.got) != len(want) {
		t.Fatalf("got %+v", rec.got)
	}
	for i := range want {
		if rec.got[i] != want[i] {
			t.Errorf("observation %d = %+v, want %+v", i, rec.got[i], want[i])
		}
	}
}
