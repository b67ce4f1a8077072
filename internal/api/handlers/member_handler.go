package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-members-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-members-backend/internal/service"
)

// MemberHandler exposes read endpoints for the workspace roster.
type MemberHandler struct {
	memberService service.MemberService
}

// GET /api/workspaces/:workspaceID/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	workspaceID := c.Param("workspaceID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  members,
		"count": len(members),
	})
}

// GET /api/workspaces/:workspaceID/activity
func (h *MemberHandler) ListActivity(c *gin.Context) {
	workspaceID := c.Param("workspaceID")
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.memberService.ListActivity(c.Request.Context(), workspaceID, userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  entries,
		"count": len(entries),
	})
}
