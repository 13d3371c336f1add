package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bloodbridge.org/internal/audit"
	"bloodbridge.org/internal/auth"
	"bloodbridge.org/internal/obs"
	"bloodbridge.org/internal/rbac"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// Authenticate is the first gate layer: it extracts and verifies the bearer
// token and attaches the identity to the request context. An expired token
// gets the explicit expired marker so clients know to refresh; every other
// failure is a plain 401.
func Authenticate(tokens *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r.Header.Get(authHeader))
			if err != nil {
				obs.CountGateDecision("unauthorized")
				audit.Denied(r.Context(), "", "api_access", r.URL.Path, "", err.Error())
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				obs.CountGateDecision("unauthorized")
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					audit.Denied(r.Context(), "", "api_access", r.URL.Path, "", "token expired")
					writeExpired(w)
				default:
					// Wrong-kind folds into invalid here; the distinction
					// never reaches the client.
					audit.Denied(r.Context(), "", "api_access", r.URL.Path, "", "invalid token")
					writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				}
				return
			}

			identity := auth.Identity{UserID: claims.Subject, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequirePermission is the second gate layer: a pure lookup into the static
// role/permission matrix, with an audit event for every decision. It assumes
// Authenticate already ran; a missing identity is a wiring bug and is treated
// as unauthorized rather than panicking.
func RequirePermission(perm rbac.Permission, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				obs.CountGateDecision("unauthorized")
				audit.Denied(r.Context(), "", string(perm), resource, "", "no identity attached")
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
				return
			}

			if !rbac.HasPermission(identity.Role, perm) {
				obs.CountGateDecision("denied")
				audit.Denied(r.Context(), string(identity.Role), string(perm), resource,
					identity.UserID, fmt.Sprintf("role lacks %q permission", perm))
				writeError(w, http.StatusForbidden, codeForbidden,
					fmt.Sprintf("access denied: role %s does not have %q permission", identity.Role, perm))
				return
			}

			obs.CountGateDecision("allowed")
			audit.Allowed(r.Context(), string(identity.Role), string(perm), resource, identity.UserID)
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
