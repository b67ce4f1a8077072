package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/Marga-Ghale/ora-members-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Invitation *InvitationHandler
	Member     *MemberHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Invitation: &InvitationHandler{invitationService: services.Invitation},
		Member:     &MemberHandler{memberService: services.Member},
	}
}

// ============================================
// Error Mapping
// ============================================

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error onto the HTTP response. Internal
// causes are never echoed to the client.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	msg := "internal server error"
	if status != http.StatusInternalServerError {
		var e *apperr.Error
		if errors.As(err, &e) {
			msg = e.Message
		}
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}
