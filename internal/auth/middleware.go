package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Skipper allows callers to bypass token parsing for specific requests.
type Skipper func(r *http.Request) bool

// Middleware resolves the actor for each request: the subject of a valid
// bearer token, or the default actor when no Authorization header is sent.
// A present but invalid token is rejected with 401.
type Middleware struct {
	cfg          Config
	defaultActor string
	skipper      Skipper
}

// NewMiddleware constructs Middleware with validation config.
func NewMiddleware(cfg Config, defaultActor string) Middleware {
	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	}
	return Middleware{cfg: cfg, defaultActor: defaultActor, skipper: skipper}
}

// Wrap attaches actor resolution to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper != nil && m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := m.actor(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "detail": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func (m Middleware) actor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return m.defaultActor, nil
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", ErrInvalidToken
	}
	claims, err := Parse(header[len("Bearer "):], m.cfg)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
