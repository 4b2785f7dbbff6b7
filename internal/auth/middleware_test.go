package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "processmap-test"}

func serve(t *testing.T, authorization string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := NewMiddleware(testConfig, "app_user").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareFallsBackToDefaultActor(t *testing.T) {
	rec, actor := serve(t, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "app_user", actor)
}

func TestMiddlewareUsesTokenSubject(t *testing.T) {
	token, err := Issue(testConfig, "analyst@example.com", time.Hour)
	require.NoError(t, err)

	rec, actor := serve(t, "Bearer "+token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "analyst@example.com", actor)
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	expired, err := Issue(testConfig, "analyst", -time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := Issue(Config{Secret: testConfig.Secret, Issuer: "elsewhere"}, "analyst", time.Hour)
	require.NoError(t, err)
	wrongSecret, err := Issue(Config{Secret: "other", Issuer: testConfig.Issuer}, "analyst", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not-a-jwt",
		"expired":      "Bearer " + expired,
		"wrong issuer": "Bearer " + wrongIssuer,
		"wrong secret": "Bearer " + wrongSecret,
	} {
		t.Run(name, func(t *testing.T) {
			rec, actor := serve(t, header)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Empty(t, actor)
			require.Contains(t, rec.Body.String(), `"type":"unauthorized"`)
		})
	}
}

func TestHealthzSkipsTokenParsing(t *testing.T) {
	handler := NewMiddleware(testConfig, "app_user").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := ActorFrom(r.Context())
		require.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
