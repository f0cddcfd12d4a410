// Package auth verifies caller credentials against a GoTrue-style
// authentication service. The workflow never starts for a request whose token
// cannot be resolved to an identity.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidToken is returned for tokens the auth service rejects.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the verified caller.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// HTTPVerifier calls GET {BaseURL}/auth/v1/user with the bearer token and the
// project anon key.
type HTTPVerifier struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client
}

func NewHTTPVerifier(baseURL, anonKey string) *HTTPVerifier {
	return &HTTPVerifier{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AnonKey:    anonKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.AnonKey != "" {
		req.Header.Set("apikey", v.AnonKey)
	}

	res, err := v.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth status %d", res.StatusCode)
	}

	var ident Identity
	if err := json.NewDecoder(res.Body).Decode(&ident); err != nil {
		return nil, err
	}
	if ident.ID == "" {
		return nil, ErrInvalidToken
	}
	return &ident, nil
}

// StaticVerifier maps fixed tokens to identities. Used in tests and local
// development without an auth service.
type StaticVerifier struct {
	Tokens map[string]*Identity
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if ident, ok := v.Tokens[token]; ok {
		return ident, nil
	}
	return nil, ErrInvalidToken
}
