package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/synaptica-ai/classifier/pkg/gateway/auth"
)

type staticValidator struct{}

func (staticValidator) ValidateToken(ctx context.Context, token string) (auth.Claims, error) {
	if token != "ok" {
		return nil, errors.New("nope")
	}
	return auth.Claims{"sub": "user-1"}, nil
}

func TestAuthenticate(t *testing.T) {
	var seen string
	handler := Authenticate(staticValidator{}, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFrom(r.Context()); ok {
			seen = claims.Subject()
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		path, header string
		want         int
	}{
		{"/health", "", http.StatusNoContent},
		{"/api/v1/models", "", http.StatusUnauthorized},
		{"/api/v1/models", "Bearer wrong", http.StatusUnauthorized},
		{"/api/v1/models", "Bearer ok", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %q: status %d, want %d", tc.path, tc.header, rec.Code, tc.want)
		}
	}
	if seen != "user-1" {
		t.Fatalf("claims not propagated, saw %q", seen)
	}
}

func TestRecoveryAndLogging(t *testing.T) {
	handler := Logging(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(0, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %d %d", first.Code, second.Code)
	}
}
