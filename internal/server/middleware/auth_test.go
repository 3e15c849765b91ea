package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVerifier is a Verifier for unit tests that counts its calls.
type testVerifier struct {
	validTokens map[string]*Claims
	err         error
	calls       int
	lastToken   string
}

func newTestVerifier() *testVerifier {
	return &testVerifier{validTokens: make(map[string]*Claims)}
}

func (v *testVerifier) addValidToken(token string, claims *Claims) {
	v.validTokens[token] = claims
}

func (v *testVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	v.calls++
	v.lastToken = token
	if v.err != nil {
		return nil, v.err
	}
	claims, ok := v.validTokens[token]
	if !ok {
		return nil, fmt.Errorf("token not recognised")
	}
	return claims, nil
}

func serveWithAuth(t *testing.T, v Verifier, header string) (*httptest.ResponseRecorder, int, Claims) {
	t.Helper()

	handlerCalls := 0
	var seen Claims
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalls++
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seen = claims
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/save-result", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	AuthMiddleware(v)(handler).ServeHTTP(w, req)
	return w, handlerCalls, seen
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	verifier := newTestVerifier()
	expected := &Claims{UserID: "user-123", Email: "a@example.com", Raw: map[string]any{"sub": "user-123"}}
	verifier.addValidToken("abc123", expected)

	w, handlerCalls, seen := serveWithAuth(t, verifier, "Bearer abc123")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, handlerCalls)
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, "abc123", verifier.lastToken)
	assert.Equal(t, *expected, seen)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Token abc123"},
		{name: "lowercase bearer", header: "bearer abc123"},
		{name: "mixed case bearer", header: "BeArEr abc123"},
		{name: "only Bearer", header: "Bearer"},
		{name: "empty token", header: "Bearer "},
		{name: "double space", header: "Bearer  abc123"},
		{name: "no separator", header: "Bearerabc123"},
		{name: "extra part", header: "Bearer abc 123"},
		{name: "raw token", header: "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := newTestVerifier()
			verifier.addValidToken("abc123", &Claims{UserID: "user-123"})

			w, handlerCalls, _ := serveWithAuth(t, verifier, tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, 0, handlerCalls, "handler should not be called")
			assert.Equal(t, 0, verifier.calls, "verifier should not be called")
			assert.Equal(t, "Unauthorized: missing token", errorMessage(t, w))
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	causes := []error{
		errors.New("token expired"),
		errors.New("signature mismatch"),
		errors.New("token revoked"),
	}

	for _, cause := range causes {
		t.Run(cause.Error(), func(t *testing.T) {
			verifier := newTestVerifier()
			verifier.err = cause

			w, handlerCalls, _ := serveWithAuth(t, verifier, "Bearer well.formed.token")

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, 0, handlerCalls, "handler should not be called")
			assert.Equal(t, 1, verifier.calls, "verifier is called exactly once")
			assert.Equal(t, "Unauthorized: invalid token", errorMessage(t, w))
		})
	}
}

func TestAuthMiddleware_ClaimsWithoutSubject(t *testing.T) {
	verifier := newTestVerifier()
	verifier.addValidToken("anon", &Claims{Email: "a@example.com"})

	w, handlerCalls, _ := serveWithAuth(t, verifier, "Bearer anon")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, handlerCalls)
}

func TestAuthMiddleware_FailureHook(t *testing.T) {
	var failures []error
	mw := AuthMiddleware(newTestVerifier(), WithFailureHook(func(err error) {
		failures = append(failures, err)
	}))

	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	for _, header := range []string{"", "Bearer unknown"} {
		req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[0], ErrMissingToken)
	assert.ErrorIs(t, failures[1], ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	verifier := newTestVerifier()
	verifier.addValidToken("abc123", &Claims{UserID: "u1"})

	claims, err := Authenticate(context.Background(), "Bearer abc123", verifier)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	_, err = Authenticate(context.Background(), "Token abc123", verifier)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = Authenticate(context.Background(), "Bearer nope", verifier)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrMissingToken)
}

func TestVerifierFunc(t *testing.T) {
	v := VerifierFunc(func(_ context.Context, token string) (*Claims, error) {
		return &Claims{UserID: "from-" + token}, nil
	})

	claims, err := Authenticate(context.Background(), "Bearer t", v)
	require.NoError(t, err)
	assert.Equal(t, "from-t", claims.UserID)
}

func TestClaimsFromContext_ReturnsCopy(t *testing.T) {
	ctx := WithClaims(context.Background(), &Claims{UserID: "u1", Raw: map[string]any{"role": "user"}})

	first, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	first.UserID = "tampered"
	first.Raw["role"] = "admin"

	second, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", second.UserID)
	assert.Equal(t, "user", second.Raw["role"])
}

func TestGetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	_, err := GetUserID(req)
	assert.Error(t, err)

	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u42"}))
	userID, err := GetUserID(req)
	require.NoError(t, err)
	assert.Equal(t, "u42", userID)
}
