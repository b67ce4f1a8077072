package service

import (
	"github.com/Marga-Ghale/ora-members-backend/internal/billing"
	"github.com/Marga-Ghale/ora-members-backend/internal/config"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
	"github.com/Marga-Ghale/ora-members-backend/internal/socket"
)

// MagicLinkSender dispatches the sign-in email for a freshly invited
// member. Implemented by *email.Service.
type MagicLinkSender interface {
	SendMagicLink(workspaceName, to, invitedBy, memberPublicID string) error
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth       AuthService
	Invitation InvitationService
	Member     MemberService
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config        *config.Config
	Repos         *repository.Repositories
	Subscriptions billing.SubscriptionSource
	Seats         billing.SeatSyncer
	EmailSvc      MagicLinkSender
	Broadcaster   *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	return &Services{
		Auth: NewAuthService(deps.Config.JWTSecret),
		Invitation: NewInvitationService(
			deps.Repos.MemberRepo,
			deps.Repos.InviteLinkRepo,
			deps.Repos.WorkspaceRepo,
			deps.Repos.UserRepo,
			deps.Repos.ActivityRepo,
			deps.Subscriptions,
			deps.Seats,
			deps.EmailSvc,
			deps.Broadcaster,
			deps.Config.SeatLimited(),
			deps.Config.AppBaseURL,
		),
		Member: NewMemberService(
			deps.Repos.MemberRepo,
			deps.Repos.WorkspaceRepo,
			deps.Repos.ActivityRepo,
		),
	}
}
