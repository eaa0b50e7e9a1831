package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
)

// PanelHandler serves the protected areas behind the access gate.
type PanelHandler struct {
	Accounts *service.AccountService
}

// HandleMe returns the signed-in user.
//
//	@Summary		Current user
//	@Description	Returns the public view of the user the session belongs to.
//	@Tags			Panels
//	@Produce		json
//	@Success		200	{object}	authsdk.UserView		"Current user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid session"
//	@Security		BearerAuth
//	@Router			/v1/auth/me [get].
func (h *PanelHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.Public())
}

// HandleDashboard is open to users with a verified email.
//
//	@Summary		Dashboard
//	@Tags			Panels
//	@Produce		json
//	@Success		200	{object}	authsdk.PanelResponse	"Dashboard"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid session"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Email not verified"
//	@Security		BearerAuth
//	@Router			/v1/auth/dashboard [get].
func (h *PanelHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.PanelResponse{
		Message: "Welcome to your dashboard",
		User:    u.Public(),
	})
}

// HandleModerator is open to moderators and administrators.
//
//	@Summary		Moderator panel
//	@Tags			Panels
//	@Produce		json
//	@Success		200	{object}	authsdk.PanelResponse	"Moderator panel"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid session"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Role not allowed"
//	@Security		BearerAuth
//	@Router			/v1/auth/moderator [get].
func (h *PanelHandler) HandleModerator(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.PanelResponse{
		Message: "Moderator panel access granted",
		User:    u.Public(),
	})
}

// HandleAdmin lists every user for administrators.
//
//	@Summary		Admin panel
//	@Description	Lists all users, oldest first, without password hashes or token digests.
//	@Tags			Panels
//	@Produce		json
//	@Success		200	{object}	authsdk.ListUsersResponse	"All users"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Missing or invalid session"
//	@Failure		403	{object}	authsdk.ErrorResponse		"Role not allowed"
//	@Security		BearerAuth
//	@Router			/v1/auth/admin [get].
func (h *PanelHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]authsdk.UserView, len(users))
	for i, u := range users {
		views[i] = u.Public()
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ListUsersResponse{
		Message: "Admin panel access granted",
		Users:   views,
	})
}

// currentUser prefers the record the gate already loaded. A user deleted
// after their session was issued is reported as unauthenticated.
func (h *PanelHandler) currentUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	if u, ok := loadedUser(r.Context()); ok {
		return u, true
	}

	p, _ := service.PrincipalFrom(r.Context())
	u, err := h.Accounts.Me(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			err = service.ErrUnauthenticated
		}
		writeError(w, r, err)
		return domain.User{}, false
	}
	return u, true
}
