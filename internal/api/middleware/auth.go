package middleware

import (
	"context"
	"net/http"
	"strconv"
)

// Identity headers set by the upstream auth proxy.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "admin"
)

type identityKey struct{}

type identity struct {
	userID int64
	role   string
}

// Identity reads the proxy headers into the request context. A malformed
// user id is rejected; a missing one leaves the request anonymous.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderUserID)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "invalid_user", "invalid user id header")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, identity{userID: id, role: r.Header.Get(HeaderUserRole)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id.userID
}

func IsAdmin(ctx context.Context) bool {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id.userID != 0 && id.role == RoleAdmin
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == 0 {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == 0 {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "login required")
			return
		}
		if !IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser is used by tests and internal callers to attach an identity.
func WithUser(ctx context.Context, userID int64, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, role: role})
}
