// Package middleware resolves request identities for net/http handlers.
// It is the only HTTP-aware layer; the core stays framework-agnostic.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authkit "github.com/fieldday/authkit"
)

// accessTokenCookie is checked when no Authorization header is present.
const accessTokenCookie = "accessToken"

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by Authenticate.
func IdentityFromContext(ctx context.Context) (*authkit.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authkit.Identity)
	return id, ok
}

// Authenticate resolves the caller from the bearer header or the access
// token cookie and attaches the Identity to the request context. Missing
// credentials are 401, bad credentials 403, matching the distinction the
// service draws between ErrNoToken and everything else.
func Authenticate(svc *authkit.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := rawToken(r)
			override := actingOverride(r)

			identity, err := svc.Authenticate(r.Context(), raw, override)
			if err != nil {
				if errors.Is(err, authkit.ErrNoToken) {
					writeError(w, http.StatusUnauthorized, authkit.UserMessage(err))
					return
				}
				writeError(w, http.StatusForbidden, authkit.UserMessage(authkit.ErrTokenInvalid))
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits identities that hold the role, whatever they are
// currently acting as.
func RequireRole(role authkit.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !identity.HasRole(role) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActingRole admits identities currently acting as the role.
func RequireActingRole(role authkit.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if identity.ActingRole != role {
				writeError(w, http.StatusForbidden, "Must be acting as "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rawToken(r *http.Request) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// actingOverride lets a multi-role user act as one of their roles for this
// request. Header wins over query parameter.
func actingOverride(r *http.Request) string {
	if v := r.Header.Get("X-Act-As"); v != "" {
		return v
	}
	return r.URL.Query().Get("actAs")
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
