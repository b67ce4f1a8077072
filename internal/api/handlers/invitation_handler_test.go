package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
)

// stubInvitationService returns canned results per method.
type stubInvitationService struct {
	inviteResp *models.InviteMemberResponse
	inviteErr  error
	redeemResp *models.RedeemInviteLinkResponse
	redeemErr  error
	infoResp   *models.InviteInfoResponse
	infoErr    error
}

func (s *stubInvitationService) InviteByEmail(ctx context.Context, workspaceID, inviterID, email string) (*models.InviteMemberResponse, error) {
	return s.inviteResp, s.inviteErr
}

func (s *stubInvitationService) ActivateMember(ctx context.Context, memberPublicID, userID string) error {
	return nil
}

func (s *stubInvitationService) RemoveMember(ctx context.Context, workspaceID, adminID, memberPublicID string) (*models.RemoveMemberResponse, error) {
	return &models.RemoveMemberResponse{Success: true, SeatReleased: true}, nil
}

func (s *stubInvitationService) GenerateInviteLink(ctx context.Context, workspaceID, adminID string, role models.MemberRole, expiresInDays int) (*models.GeneratedInviteLinkResponse, error) {
	return nil, apperr.Forbidden("admin role required")
}

func (s *stubInvitationService) RedeemInviteLink(ctx context.Context, code, userID string) (*models.RedeemInviteLinkResponse, error) {
	return s.redeemResp, s.redeemErr
}

func (s *stubInvitationService) GetInviteInfo(ctx context.Context, code string) (*models.InviteInfoResponse, error) {
	return s.infoResp, s.infoErr
}

func (s *stubInvitationService) ListInviteLinks(ctx context.Context, workspaceID, adminID string) ([]models.InviteLinkResponse, error) {
	return nil, nil
}

func (s *stubInvitationService) DeleteInviteLink(ctx context.Context, adminID string, linkID int64) error {
	return nil
}

func newTestRouter(stub *stubInvitationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := &InvitationHandler{invitationService: stub}

	authed := r.Group("/api")
	authed.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	})
	authed.POST("/workspaces/:workspaceID/members/invite", h.InviteMember)
	authed.POST("/workspaces/:workspaceID/invite-links", h.GenerateInviteLink)
	authed.POST("/invite-links/:code/redeem", h.RedeemInviteLink)

	r.GET("/api/invite-links/:code", h.GetInviteInfo)
	return r
}

func TestInviteMemberEndpoint(t *testing.T) {
	t.Run("created on success", func(t *testing.T) {
		stub := &stubInvitationService{
			inviteResp: &models.InviteMemberResponse{MemberID: "m-1"},
		}
		r := newTestRouter(stub)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/workspaces/ws-1/members/invite",
			strings.NewReader(`{"email":"new@acme.test"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"memberId":"m-1"`)
	})

	t.Run("rejects malformed email before the service", func(t *testing.T) {
		stub := &stubInvitationService{}
		r := newTestRouter(stub)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/workspaces/ws-1/members/invite",
			strings.NewReader(`{"email":"not-an-email"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps error kinds onto status codes", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{apperr.Conflict("user is already a member of this workspace"), http.StatusConflict},
			{apperr.Forbidden("admin role required"), http.StatusForbidden},
			{apperr.NotFound("workspace not found"), http.StatusNotFound},
			{apperr.Internal("failed to reserve a billing seat", assert.AnError), http.StatusInternalServerError},
		}
		for _, tc := range cases {
			stub := &stubInvitationService{inviteErr: tc.err}
			r := newTestRouter(stub)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost,
				"/api/workspaces/ws-1/members/invite",
				strings.NewReader(`{"email":"new@acme.test"}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
		}
	})

	t.Run("internal causes are not echoed to the client", func(t *testing.T) {
		stub := &stubInvitationService{
			inviteErr: apperr.Internal("failed to reserve a billing seat", assert.AnError),
		}
		r := newTestRouter(stub)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/workspaces/ws-1/members/invite",
			strings.NewReader(`{"email":"new@acme.test"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "billing")
		assert.Contains(t, w.Body.String(), "internal server error")
	})
}

func TestGetInviteInfoEndpoint(t *testing.T) {
	inviter := "Ada Admin"
	stub := &stubInvitationService{
		infoResp: &models.InviteInfoResponse{
			WorkspaceName: "Acme",
			WorkspaceSlug: "acme",
			InviterName:   &inviter,
			ExpiresAt:     time.Now().Add(24 * time.Hour),
		},
	}
	r := newTestRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/invite-links/some-code", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"workspaceSlug":"acme"`)
	assert.Contains(t, w.Body.String(), `"isExpired":false`)
}

func TestRedeemEndpointStatusMapping(t *testing.T) {
	stub := &stubInvitationService{
		redeemErr: apperr.BadRequest("invite link is invalid or has expired"),
	}
	r := newTestRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/invite-links/bad-code/redeem", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or has expired")
}
