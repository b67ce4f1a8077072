package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-members-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
	"github.com/Marga-Ghale/ora-members-backend/internal/service"
)

// InvitationHandler exposes HTTP endpoints for invitation flows.
type InvitationHandler struct {
	invitationService service.InvitationService
}

// POST /api/workspaces/:workspaceID/members/invite
func (h *InvitationHandler) InviteMember(c *gin.Context) {
	workspaceID := c.Param("workspaceID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email is required"})
		return
	}

	resp, err := h.invitationService.InviteByEmail(c.Request.Context(), workspaceID, userID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// POST /api/members/:memberID/activate
func (h *InvitationHandler) ActivateMember(c *gin.Context) {
	memberID := c.Param("memberID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.invitationService.ActivateMember(c.Request.Context(), memberID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/workspaces/:workspaceID/members/:memberID
func (h *InvitationHandler) RemoveMember(c *gin.Context) {
	workspaceID := c.Param("workspaceID")
	memberID := c.Param("memberID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	resp, err := h.invitationService.RemoveMember(c.Request.Context(), workspaceID, userID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// POST /api/workspaces/:workspaceID/invite-links
func (h *InvitationHandler) GenerateInviteLink(c *gin.Context) {
	workspaceID := c.Param("workspaceID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.GenerateInviteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.invitationService.GenerateInviteLink(
		c.Request.Context(), workspaceID, userID,
		models.MemberRole(req.Role), req.ExpiresInDays,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GET /api/workspaces/:workspaceID/invite-links
func (h *InvitationHandler) ListInviteLinks(c *gin.Context) {
	workspaceID := c.Param("workspaceID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	links, err := h.invitationService.ListInviteLinks(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  links,
		"count": len(links),
	})
}

// DELETE /api/invite-links/:code
// The path segment carries the numeric link id; it shares the wildcard
// name with the code-addressed routes on the same prefix.
func (h *InvitationHandler) DeleteInviteLink(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	linkID, err := strconv.ParseInt(c.Param("code"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link id"})
		return
	}

	if err := h.invitationService.DeleteInviteLink(c.Request.Context(), userID, linkID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/invite-links/:code/redeem
func (h *InvitationHandler) RedeemInviteLink(c *gin.Context) {
	code := c.Param("code")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	resp, err := h.invitationService.RedeemInviteLink(c.Request.Context(), code, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GET /api/invite-links/:code
// Public: shown to users before they sign in, so no auth middleware.
func (h *InvitationHandler) GetInviteInfo(c *gin.Context) {
	code := c.Param("code")

	info, err := h.invitationService.GetInviteInfo(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
