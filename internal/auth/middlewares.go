package auth

import (
	"context"
	"net/http"
	"strings"
)

type userContextKey struct{}

// ContextWithUser returns a copy of ctx authenticated as the given user.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user ctx was authenticated as, if any.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey{}).(User)
	return user, ok
}

// bearerToken extracts the token of a "Bearer" Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// JwtValidator authenticates the request by its bearer access token. Requests without a valid token
// are answered with 401, the others continue with the stored user in their context.
func JwtValidator(service Authorizer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			user, err := service.ValidateToken(r.Context(), token)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), *user)))
		})
	}
}

// AllowedRole lets through only the users holding one of the given roles, answering 401 when
// nobody is authenticated and 403 otherwise.
func AllowedRole(service Authorizer, roles ...Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := service.GetAuthenticatedUser(r.Context())
			switch {
			case err != nil:
				w.WriteHeader(http.StatusUnauthorized)
			case Allow(user, roles...) != nil:
				w.WriteHeader(http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
