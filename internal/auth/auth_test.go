package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newVerifier(t *testing.T, handler http.HandlerFunc) *HTTPVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPVerifier(srv.URL, "anon-key")
}

func TestVerifyResolvesIdentity(t *testing.T) {
	v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q", got)
		}
		w.Write([]byte(`{"id":"user-1","email":"u@example.com"}`))
	})

	ident, err := v.Verify(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.ID != "user-1" || ident.Email != "u@example.com" {
		t.Errorf("identity = %+v", ident)
	}
}

func TestVerifyRejectsUnauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("status %d: err = %v, want ErrInvalidToken", status, err)
		}
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	v := NewHTTPVerifier("http://unused", "")
	if _, err := v.Verify(context.Background(), "   "); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsIdentityWithoutID(t *testing.T) {
	v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"u@example.com"}`))
	})
	if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifySurfacesServerErrors(t *testing.T) {
	v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := v.Verify(context.Background(), "tok")
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want a non-token transport error", err)
	}
}
