package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// values this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a bearer token to the user it belongs to.
// service.AuthService implements it. An error wrapping
// apperror.ErrUnauthorized rejects the token; any other error is a failure
// to check it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Standard response envelopes for a rejected token and a failed lookup.
const (
	unauthorizedBody = `{"success":false,"message":"Invalid or expired token","data":null,"error":"unauthorized"}`
	internalBody     = `{"success":false,"message":"An internal error occurred","data":null,"error":"internal_error"}`
)

// RequireAuth rejects requests without a valid bearer token with 401 and
// otherwise stores the resolved user in the request context. When the token
// cannot be checked at all (e.g. the database is down) it answers 500.
//
// Chi applies middleware in a chain: req → M1 → M2 → Handler → M2 → M1 → resp.
// Handlers mounted behind RequireAuth can rely on UserFromContext succeeding.
func RequireAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeUnauthorized(w)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			switch {
			case err != nil && !errors.Is(err, apperror.ErrUnauthorized):
				logger.ErrorContext(r.Context(), "authenticating request",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeJSON(w, http.StatusInternalServerError, internalBody)
				return
			case err != nil || user == nil:
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) for an
// anonymous request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bookifyme"`)
	writeJSON(w, http.StatusUnauthorized, unauthorizedBody)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body + "\n"))
}
