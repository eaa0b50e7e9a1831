package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// Gate runs the access gate for policy in front of a handler. On success
// the principal is in the request context (service.PrincipalFrom) and the
// contextual logger carries the user id.
func Gate(gate *service.AccessGate, policy service.Policy) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := httpx.BearerToken(r)

			req, err := gate.Run(r.Context(), token, policy)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := service.WithPrincipal(r.Context(), req.Principal)
			ctx = slogx.With(ctx, "user_id", req.Principal.ID)
			if req.User != nil {
				ctx = withLoadedUser(ctx, *req.User)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth admits any valid session.
func RequireAuth(gate *service.AccessGate) httpx.Middleware {
	return Gate(gate, service.Authenticated)
}

// RequireVerified admits sessions of users with a confirmed email.
func RequireVerified(gate *service.AccessGate) httpx.Middleware {
	return Gate(gate, service.Verified)
}

// RequireRoles admits sessions whose role is in roles.
func RequireRoles(gate *service.AccessGate, roles ...domain.Role) httpx.Middleware {
	return Gate(gate, service.RolesOnly(roles...))
}

type loadedUserKey struct{}

// withLoadedUser keeps the record the verified stage already read so the
// handler does not query it again.
func withLoadedUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, loadedUserKey{}, u)
}

func loadedUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(loadedUserKey{}).(domain.User)
	return u, ok
}
