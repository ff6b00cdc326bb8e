package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"marketplace-chat/errors"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenFromRequest extracts the JWT from the Authorization header or, for browser
// websocket clients that cannot set headers, from the access_token query parameter.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errors.ErrMissingToken
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, nil
	}
	return "", errors.ErrMissingToken
}

// Authenticate resolves the trusted claims carried by the request.
func (i *TokenIssuer) Authenticate(r *http.Request) (*CustomClaims, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	return i.ValidateToken(token)
}

// Middleware rejects requests without a valid token and injects the claims
// into the request context for the handlers.
func Middleware(issuer *TokenIssuer, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := issuer.Authenticate(r)
			if err != nil {
				log.Debug("Request rejected", "path", r.URL.Path, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": errors.ErrUnauthorized.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*CustomClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*CustomClaims)
	return claims, ok && claims != nil
}
