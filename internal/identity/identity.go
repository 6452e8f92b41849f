package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderUserID carries a device-scoped user id when no token secret is set.
const HeaderUserID = "X-User-ID"

var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey struct{}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the user id stored by WithUserID, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Resolver maps a request to a user id.
type Resolver struct {
	secret []byte
	issuer string
}

// NewResolver returns a Resolver. With an empty secret it trusts the
// X-User-ID header; otherwise it requires an HS256 bearer token whose
// subject is the user id.
func NewResolver(secret, issuer string) *Resolver {
	r := &Resolver{issuer: issuer}
	if secret != "" {
		r.secret = []byte(secret)
	}
	return r
}

// TokensEnabled reports whether bearer tokens are required.
func (r *Resolver) TokensEnabled() bool {
	return r.secret != nil
}

// Resolve extracts the user id from r.
func (r *Resolver) Resolve(req *http.Request) (string, error) {
	if !r.TokensEnabled() {
		id := strings.TrimSpace(req.Header.Get(HeaderUserID))
		if id == "" {
			return "", ErrUnauthenticated
		}
		return id, nil
	}

	header := req.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrUnauthenticated
	}
	return r.Parse(parts[1])
}

// Parse validates a token and returns its subject.
func (r *Resolver) Parse(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", ErrUnauthenticated
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrUnauthenticated
	}
	return claims.Subject, nil
}

// Issue signs a token for userID valid for ttl. Used by the CLI and tests.
func (r *Resolver) Issue(userID string, ttl time.Duration) (string, error) {
	if !r.TokensEnabled() {
		return "", errors.New("issue token: no secret configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    r.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Middleware rejects unauthenticated requests with 401 and stores the user id
// in the request context otherwise.
func Middleware(r *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id, err := r.Resolve(req)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid credentials"})
				return
			}
			next.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), id)))
		})
	}
}
