package security

import (
	"testing"
	"time"

	"pulsewatch/config"
	"pulsewatch/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	ts := NewTokenService(&config.AuthConfig{Secret: "0123456789abcdef", ExpiryMin: 5})

	token, err := ts.GenerateAccessToken(RequestClaims{UserID: "7d3c1d2e-6f1a-4a4e-9d67-3b8f5f1e2a10", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "7d3c1d2e-6f1a-4a4e-9d67-3b8f5f1e2a10" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejects(t *testing.T) {
	ts := NewTokenService(&config.AuthConfig{Secret: "0123456789abcdef", ExpiryMin: 5})
	other := NewTokenService(&config.AuthConfig{Secret: "fedcba9876543210", ExpiryMin: 5})

	foreign, _ := other.GenerateAccessToken(RequestClaims{UserID: "u", Email: "e"})

	expiredClaims := RequestClaims{UserID: "u", Email: "e"}
	expiredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("0123456789abcdef"))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, RequestClaims{UserID: "u", Email: "e"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"other secret": foreign,
		"expired":      expired,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.ValidateAccessToken(token)
			if !apperror.IsKind(err, apperror.Unauthorised) {
				t.Fatalf("expected unauthorised, got %v", err)
			}
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := ComparePassword("correct horse battery staple", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = ComparePassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}
