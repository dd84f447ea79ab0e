// Package auth guards the API with a static bearer token and, optionally,
// HS256-signed JWTs.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds authentication configuration.
type Config struct {
	Enabled   bool
	Token     string // Static bearer token.
	JWTSecret string // HMAC key; JWTs are accepted only when set.
	JWTIssuer string // Required "iss" claim when non-empty.
}

// exemptPaths are always public regardless of auth configuration.
var exemptPaths = map[string]bool{
	"/":        true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// exemptPrefixes are path prefixes that are always public.
var exemptPrefixes = []string{
	"/static/",
}

// streamPaths accept the token as an access_token query parameter since
// EventSource and browser WebSockets cannot set headers.
var streamPaths = map[string]bool{
	"/api/v1/stream/frames": true,
	"/api/v1/ws/frames":     true,
}

// isExempt returns true if the path is exempt from auth.
func isExempt(path string) bool {
	if exemptPaths[path] {
		return true
	}
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Verifier checks presented tokens against a Config.
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier creates a verifier for cfg.
func NewVerifier(cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrSignatureInvalid
	}
	return []byte(v.cfg.JWTSecret), nil
}

// Verify reports whether token is the static token or a valid JWT.
func (v *Verifier) Verify(token string) error {
	if token == "" {
		return errors.New("missing token")
	}
	if v.cfg.Token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(v.cfg.Token)) == 1 {
		return nil
	}
	if v.cfg.JWTSecret == "" {
		return errors.New("invalid token")
	}
	var claims jwt.RegisteredClaims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc); err != nil {
		return fmt.Errorf("invalid jwt: %w", err)
	}
	return nil
}

// IssueToken signs an HS256 JWT for subject valid for ttl.
func IssueToken(cfg Config, subject string, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive, got %v", ttl)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.JWTIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// tokenFrom extracts the presented token from the Authorization header,
// or from access_token on stream paths.
func tokenFrom(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
		return ""
	}
	if streamPaths[r.URL.Path] {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on non-exempt paths when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	v := NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if err := v.Verify(tokenFrom(r)); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="sunclock"`)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
