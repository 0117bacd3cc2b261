package auth

import (
	"context"
	"net/http"
	"strings"
)

// Principal identifies the telephony adapter authenticated on a
// request.
type Principal struct {
	APIKey string
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// TokenFrom extracts the caller's API key from the Authorization
// header, falling back to the access_token query parameter for
// WebSocket clients that cannot set headers.
func TokenFrom(r *http.Request) (string, bool) {
	if token, ok := parseBearer(r.Header.Get("Authorization")); ok {
		return token, true
	}
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		return "", false
	}
	return token, true
}

func parseBearer(authz string) (string, bool) {
	authz = strings.TrimSpace(authz)
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}
