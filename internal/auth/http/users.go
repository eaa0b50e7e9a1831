package http

import (
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
)

type UsersHandler struct {
	Accounts *service.AccountService
}

// HandleAssignRole changes the role of another user.
//
//	@Summary		Assign role
//	@Description	Sets the role of a user. Administrators cannot change their own role. The new role applies to sessions issued after the change.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.AssignRoleRequest	true	"New role"
//	@Success		200		{object}	authsdk.UserView			"Updated user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Unknown role"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Missing or invalid session"
//	@Failure		403		{object}	authsdk.ErrorResponse		"Not an administrator, or own role"
//	@Failure		404		{object}	authsdk.ErrorResponse		"User not found"
//	@Security		BearerAuth
//	@Router			/v1/users/{id}/role [put].
func (h *UsersHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req authsdk.AssignRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := service.PrincipalFrom(r.Context())
	u, err := h.Accounts.AssignRole(r.Context(), actor, r.PathValue("id"), domain.Role(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.Public())
}
