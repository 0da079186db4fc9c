// internal/identity/identity.go
package identity

import (
	"context"
	"net/http"
	"strings"
)

const (
	// UserHeader carries the verified user id set by the upstream auth proxy.
	UserHeader = "X-User-ID"
	// TokenHeader carries the user's GitHub OAuth access token.
	TokenHeader = "X-GitHub-Token"
)

type contextKey int

const (
	userKey contextKey = iota
	tokenKey
)

// WithUser returns a copy of ctx carrying the user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFrom returns the user id stored in ctx, or "" when there is none.
func UserFrom(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

// WithToken returns a copy of ctx carrying the user's GitHub token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func tokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}

// Middleware copies the identity headers into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if user := strings.TrimSpace(r.Header.Get(UserHeader)); user != "" {
			ctx = WithUser(ctx, user)
		}
		if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
			ctx = WithToken(ctx, token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenSource resolves the GitHub access token of a user.
// An empty token means the user has not connected GitHub.
type TokenSource interface {
	Token(ctx context.Context, userID string) (string, error)
}

// ContextTokens reads the token the Middleware stored in the request context.
type ContextTokens struct{}

func (ContextTokens) Token(ctx context.Context, _ string) (string, error) {
	return tokenFrom(ctx), nil
}

// StaticTokens maps configured user ids to tokens, falling back to Next
// for users it does not know.
type StaticTokens struct {
	Tokens map[string]string
	Next   TokenSource
}

func (s StaticTokens) Token(ctx context.Context, userID string) (string, error) {
	if token, ok := s.Tokens[userID]; ok && token != "" {
		return token, nil
	}
	if s.Next == nil {
		return "", nil
	}
	return s.Next.Token(ctx, userID)
}
