package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/user"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/refresh-tokens",
	"/v1/auth/forgot-password",
	"/v1/auth/reset-password",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth authenticates every non-public request: it verifies the bearer
// access token, loads the account behind it and places the identity in the
// request context. Disabled accounts are rejected here.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		record, err := a.tokens.Verify(r.Context(), token, auth.PurposeAccess)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "please authenticate")
			return
		}

		account, err := a.users.GetByID(r.Context(), record.UserID)
		if err != nil {
			switch {
			case errors.Is(err, user.ErrNotFound):
				writeError(w, r, http.StatusUnauthorized, "please authenticate")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}
		if account.Status == user.StatusDisabled {
			writeError(w, r, http.StatusUnauthorized, auth.ErrAccountDisabled.Error())
			return
		}

		ctx := auth.ContextWithUser(r.Context(), account.ID, account.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermission gates a handler on the caller's role. It writes the
// response itself and reports whether the request may proceed.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, perm auth.Permission) bool {
	role, ok := auth.RoleFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "please authenticate")
		return false
	}
	if !auth.Authorize(role, perm) {
		writeError(w, r, http.StatusForbidden, auth.ErrForbidden.Error())
		return false
	}
	return true
}

// ensureEventOwner enforces the ownership rule for event mutations: admins
// may touch any event, everyone else only the events they created.
func (a *API) ensureEventOwner(w http.ResponseWriter, r *http.Request, eventID string) bool {
	role, _ := auth.RoleFromContext(r.Context())
	if role == user.RoleAdmin {
		return true
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "please authenticate")
		return false
	}
	owns, err := a.events.CheckOwner(r.Context(), eventID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return false
	}
	if !owns {
		writeError(w, r, http.StatusForbidden, auth.ErrForbidden.Error())
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
