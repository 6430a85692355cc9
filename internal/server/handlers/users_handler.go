package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/farmops/internal/service/users"
)

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c *gin.Context) {
	rows, err := h.svc.Users.List(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// InviteUser handles POST /api/users/invite.
func (h *Handler) InviteUser(c *gin.Context) {
	var in users.InviteInput
	if !h.bind(c, &in) {
		return
	}
	profile, err := h.svc.Users.Invite(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// UpdateUser handles PUT /api/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	var in users.UpdateInput
	if !h.bind(c, &in) {
		return
	}
	profile, err := h.svc.Users.Update(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DeleteUser handles DELETE /api/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	h.deleted(c, h.svc.Users.Delete(c.Request.Context(), identity(c), c.Param("id")))
}

// Settings handles GET /api/settings.
func (h *Handler) Settings(c *gin.Context) {
	settings, err := h.svc.Users.Settings(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateOwnProfile handles PUT /api/settings/profile.
func (h *Handler) UpdateOwnProfile(c *gin.Context) {
	var in users.ProfileInput
	if !h.bind(c, &in) {
		return
	}
	profile, err := h.svc.Users.UpdateOwnProfile(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
