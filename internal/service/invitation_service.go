package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/Marga-Ghale/ora-members-backend/internal/billing"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
	"github.com/Marga-Ghale/ora-members-backend/internal/socket"
)

// invalidLinkMessage is the single message for absent, used, and expired
// codes. Redemption must not reveal which condition failed.
const invalidLinkMessage = "invite link is invalid or has expired"

// codeGenRetries bounds retries on invite-code collisions.
const codeGenRetries = 5

// InvitationService orchestrates the membership and invite-link lifecycle:
// who may invite, when seats are consumed, and how links are redeemed.
type InvitationService interface {
	// Email invite flow
	InviteByEmail(ctx context.Context, workspaceID, inviterID, email string) (*models.InviteMemberResponse, error)
	ActivateMember(ctx context.Context, memberPublicID, userID string) error
	RemoveMember(ctx context.Context, workspaceID, adminID, memberPublicID string) (*models.RemoveMemberResponse, error)

	// Shareable link flow
	GenerateInviteLink(ctx context.Context, workspaceID, adminID string, role models.MemberRole, expiresInDays int) (*models.GeneratedInviteLinkResponse, error)
	RedeemInviteLink(ctx context.Context, code, userID string) (*models.RedeemInviteLinkResponse, error)
	GetInviteInfo(ctx context.Context, code string) (*models.InviteInfoResponse, error)
	ListInviteLinks(ctx context.Context, workspaceID, adminID string) ([]models.InviteLinkResponse, error)
	DeleteInviteLink(ctx context.Context, adminID string, linkID int64) error
}

type invitationService struct {
	memberRepo    repository.MemberRepository
	linkRepo      repository.InviteLinkRepository
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	activityRepo  repository.ActivityRepository
	subscriptions billing.SubscriptionSource
	seats         billing.SeatSyncer
	emailSvc      MagicLinkSender
	broadcaster   *socket.Broadcaster
	seatLimited   bool
	baseURL       string
}

func NewInvitationService(
	memberRepo repository.MemberRepository,
	linkRepo repository.InviteLinkRepository,
	workspaceRepo repository.WorkspaceRepository,
	userRepo repository.UserRepository,
	activityRepo repository.ActivityRepository,
	subscriptions billing.SubscriptionSource,
	seats billing.SeatSyncer,
	emailSvc MagicLinkSender,
	broadcaster *socket.Broadcaster,
	seatLimited bool,
	baseURL string,
) InvitationService {
	return &invitationService{
		memberRepo:    memberRepo,
		linkRepo:      linkRepo,
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		activityRepo:  activityRepo,
		subscriptions: subscriptions,
		seats:         seats,
		emailSvc:      emailSvc,
		broadcaster:   broadcaster,
		seatLimited:   seatLimited,
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// requireAdmin resolves the caller's live membership and checks the admin
// role. The workspace must already be known to exist.
func (s *invitationService) requireAdmin(ctx context.Context, workspaceID, userID string) (*repository.Member, error) {
	member, err := s.memberRepo.FindLiveByUser(ctx, workspaceID, userID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve caller membership", err)
	}
	if member == nil || member.Role != models.MemberRoleAdmin {
		return nil, apperr.Forbidden("admin role required")
	}
	return member, nil
}

func (s *invitationService) findWorkspace(ctx context.Context, workspaceID string) (*repository.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve workspace", err)
	}
	if ws == nil {
		return nil, apperr.NotFound("workspace not found")
	}
	return ws, nil
}

// seatCountedSubscription returns the subscription whose seat count must
// track membership, after enforcing the paid-plan gate. A nil result with
// a nil error means the workspace is exempt from seat counting.
func (s *invitationService) seatCountedSubscription(ctx context.Context, workspaceID string) (*models.SubscriptionView, error) {
	subs, err := s.subscriptions.GetSubscriptions(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to read billing subscriptions", err)
	}
	if !models.HasPaidPlan(subs) {
		return nil, apperr.Forbidden("workspace has no active paid plan")
	}
	return models.SeatCountedSubscription(subs), nil
}

func (s *invitationService) logActivity(ctx context.Context, workspaceID, action, actorID string, subject, details string) {
	a := &repository.MembershipActivity{
		WorkspaceID: workspaceID,
		Action:      action,
	}
	if actorID != "" {
		a.ActorID = &actorID
	}
	if subject != "" {
		a.Subject = &subject
	}
	if details != "" {
		a.Details = &details
	}
	if err := s.activityRepo.Log(ctx, a); err != nil {
		log.Printf("[Invite] Failed to log activity %s for workspace %s: %v", action, workspaceID, err)
	}
}

// releaseSeat is the best-effort seat decrement used both as removal
// cleanup and as compensation when an invite fails after the increment.
func (s *invitationService) releaseSeat(ctx context.Context, subscriptionID, workspaceID string) bool {
	if err := s.seats.DecrementSeats(ctx, subscriptionID, 1); err != nil {
		log.Printf("[Billing] Seat decrement failed for workspace %s (subscription %s): %v",
			workspaceID, subscriptionID, err)
		return false
	}
	return true
}

// ============================================
// Email invite flow
// ============================================

func (s *invitationService) InviteByEmail(ctx context.Context, workspaceID, inviterID, email string) (*models.InviteMemberResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.BadRequest("email is required")
	}

	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.requireAdmin(ctx, ws.ID, inviterID)
	if err != nil {
		return nil, err
	}

	existing, err := s.memberRepo.FindLiveByEmail(ctx, ws.ID, email)
	if err != nil {
		return nil, apperr.Internal("failed to check existing membership", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("user is already a member of this workspace")
	}

	// Seat increment happens before the member row exists: over-granting a
	// seat is a quota violation, while a stranded increment can be
	// compensated below.
	var seatSub *models.SubscriptionView
	if s.seatLimited {
		seatSub, err = s.seatCountedSubscription(ctx, ws.ID)
		if err != nil {
			return nil, err
		}
		if seatSub != nil {
			if err := s.seats.IncrementSeats(ctx, seatSub.ExternalID, 1); err != nil {
				return nil, apperr.Internal("failed to reserve a billing seat", err)
			}
		}
	}

	account, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if seatSub != nil {
			s.releaseSeat(ctx, seatSub.ExternalID, ws.ID)
		}
		return nil, apperr.Internal("failed to resolve account for email", err)
	}

	member := &repository.Member{
		WorkspaceID: ws.ID,
		Email:       email,
		Role:        models.MemberRoleMember,
		Status:      models.MemberStatusInvited,
		CreatedBy:   inviter.UserID,
	}
	if account != nil {
		member.UserID = &account.ID
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		if seatSub != nil {
			s.releaseSeat(ctx, seatSub.ExternalID, ws.ID)
		}
		if errors.Is(err, repository.ErrDuplicateMember) {
			return nil, apperr.Conflict("user is already a member of this workspace")
		}
		return nil, apperr.Internal("failed to create member", err)
	}

	inviterName := ""
	if u, err := s.userRepo.FindByID(ctx, inviterID); err == nil && u != nil {
		inviterName = u.Name
	}

	// Dispatch is synchronous and fail-closed: a member row nobody was
	// told about is a ghost invite, so roll it back.
	if err := s.emailSvc.SendMagicLink(ws.Name, email, inviterName, member.PublicID); err != nil {
		if _, delErr := s.memberRepo.SoftDelete(ctx, member.ID, inviterID); delErr != nil {
			log.Printf("[Invite] Failed to roll back member %s after dispatch error: %v", member.PublicID, delErr)
		}
		if seatSub != nil {
			s.releaseSeat(ctx, seatSub.ExternalID, ws.ID)
		}
		return nil, apperr.Internal("failed to deliver invitation email", err)
	}

	s.logActivity(ctx, ws.ID, repository.ActivityMemberInvited, inviterID, email, "")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMemberInvited(ws.ID, member.PublicID, email, inviterID)
	}

	return &models.InviteMemberResponse{MemberID: member.PublicID}, nil
}

func (s *invitationService) ActivateMember(ctx context.Context, memberPublicID, userID string) error {
	member, err := s.memberRepo.FindByPublicID(ctx, memberPublicID)
	if err != nil {
		return apperr.Internal("failed to resolve member", err)
	}
	if member == nil {
		return apperr.NotFound("member not found")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return apperr.Internal("failed to resolve user", err)
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}

	// Only the invitee may complete the invite. The member's public id is
	// visible to the whole roster, so it is not a capability on its own:
	// the caller's verified email must match the invited address, and a
	// member already bound to an account cannot be claimed by another.
	if member.UserID != nil && *member.UserID != userID {
		return apperr.Forbidden("invitation belongs to another account")
	}
	if !strings.EqualFold(user.Email, member.Email) {
		return apperr.Forbidden("invitation was issued to a different email")
	}

	ok, err := s.memberRepo.Activate(ctx, memberPublicID, userID)
	if err != nil {
		return apperr.Internal("failed to activate member", err)
	}
	if !ok {
		// The invited → active transition happens exactly once.
		return apperr.Conflict("invitation already completed")
	}

	s.logActivity(ctx, member.WorkspaceID, repository.ActivityMemberActivated, userID, member.Email, "")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMemberActivated(member.WorkspaceID, member.PublicID)
	}
	return nil
}

func (s *invitationService) RemoveMember(ctx context.Context, workspaceID, adminID, memberPublicID string) (*models.RemoveMemberResponse, error) {
	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, ws.ID, adminID); err != nil {
		return nil, err
	}

	member, err := s.memberRepo.FindByPublicID(ctx, memberPublicID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve member", err)
	}
	if member == nil || member.WorkspaceID != ws.ID {
		return nil, apperr.NotFound("member not found")
	}

	removed, err := s.memberRepo.SoftDelete(ctx, member.ID, adminID)
	if err != nil {
		return nil, apperr.Internal("failed to remove member", err)
	}
	if !removed {
		return nil, apperr.NotFound("member not found")
	}

	// The removal is authoritative from here on. Freeing the billing seat
	// is best-effort: a decrement failure is logged, never rolled back.
	seatReleased := true
	if s.seatLimited {
		subs, err := s.subscriptions.GetSubscriptions(ctx, ws.ID)
		if err != nil {
			log.Printf("[Billing] Failed to read subscriptions while removing member from workspace %s: %v", ws.ID, err)
			seatReleased = false
		} else if seatSub := models.SeatCountedSubscription(subs); seatSub != nil {
			seatReleased = s.releaseSeat(ctx, seatSub.ExternalID, ws.ID)
		}
	}

	s.logActivity(ctx, ws.ID, repository.ActivityMemberRemoved, adminID, member.Email, "")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMemberRemoved(ws.ID, member.PublicID, adminID)
	}

	return &models.RemoveMemberResponse{Success: true, SeatReleased: seatReleased}, nil
}

// ============================================
// Shareable link flow
// ============================================

func (s *invitationService) GenerateInviteLink(ctx context.Context, workspaceID, adminID string, role models.MemberRole, expiresInDays int) (*models.GeneratedInviteLinkResponse, error) {
	if role == "" {
		role = models.MemberRoleMember
	}
	if role != models.MemberRoleMember && role != models.MemberRoleAdmin {
		return nil, apperr.BadRequest("role must be member or admin")
	}
	if expiresInDays == 0 {
		expiresInDays = models.InviteLinkDefaultDays
	}
	if expiresInDays < models.InviteLinkMinDays || expiresInDays > models.InviteLinkMaxDays {
		return nil, apperr.BadRequest(fmt.Sprintf("expiresInDays must be between %d and %d",
			models.InviteLinkMinDays, models.InviteLinkMaxDays))
	}

	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	admin, err := s.requireAdmin(ctx, ws.ID, adminID)
	if err != nil {
		return nil, err
	}

	// Read-only billing gate: seats are consumed at redemption, not here.
	if s.seatLimited {
		if _, err := s.seatCountedSubscription(ctx, ws.ID); err != nil {
			return nil, err
		}
	}

	link := &repository.InviteLink{
		WorkspaceID: ws.ID,
		Role:        role,
		CreatedBy:   admin.UserID,
		ExpiresAt:   time.Now().AddDate(0, 0, expiresInDays),
	}

	for attempt := 0; ; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, apperr.Internal("failed to generate invite code", err)
		}
		link.InviteCode = code

		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateCode) && attempt < codeGenRetries {
			continue
		}
		return nil, apperr.Internal("failed to create invite link", err)
	}

	s.logActivity(ctx, ws.ID, repository.ActivityLinkCreated, adminID, link.InviteCode, string(role))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastLinkCreated(ws.ID, link.ID, adminID)
	}

	return &models.GeneratedInviteLinkResponse{
		URL:       fmt.Sprintf("%s/invite/%s", s.baseURL, link.InviteCode),
		Code:      link.InviteCode,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

func (s *invitationService) RedeemInviteLink(ctx context.Context, code, userID string) (*models.RedeemInviteLinkResponse, error) {
	link, err := s.linkRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, apperr.Internal("failed to look up invite link", err)
	}
	if link == nil || !link.Redeemable(time.Now()) {
		return nil, apperr.BadRequest(invalidLinkMessage)
	}

	ws, err := s.workspaceRepo.FindByID(ctx, link.WorkspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve workspace", err)
	}
	if ws == nil {
		// The workspace was deleted after the link was created.
		return nil, apperr.NotFound("workspace not found")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	existing, err := s.memberRepo.FindLiveByEmail(ctx, ws.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("failed to check existing membership", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("you are already a member of this workspace")
	}

	// The user already has a verified account, so the member starts
	// active: there is no invited intermediate on this path.
	member := &repository.Member{
		WorkspaceID: ws.ID,
		Email:       user.Email,
		UserID:      &user.ID,
		Role:        link.Role,
		Status:      models.MemberStatusActive,
		CreatedBy:   link.CreatedBy,
	}

	err = s.linkRepo.Redeem(ctx, link.ID, userID, member)
	switch {
	case errors.Is(err, repository.ErrLinkUsed):
		return nil, apperr.BadRequest(invalidLinkMessage)
	case errors.Is(err, repository.ErrDuplicateMember):
		return nil, apperr.Conflict("you are already a member of this workspace")
	case err != nil:
		return nil, apperr.Internal("failed to redeem invite link", err)
	}

	// Link redemption grows membership without touching billing seats,
	// unlike the email invite path. Surface the drift for operators.
	if s.seatLimited {
		log.Printf("[Billing] Workspace %s grew via invite link %d without a seat adjustment", ws.ID, link.ID)
	}

	s.logActivity(ctx, ws.ID, repository.ActivityLinkRedeemed, userID, link.InviteCode, "")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastLinkRedeemed(ws.ID, link.ID, member.PublicID)
	}

	return &models.RedeemInviteLinkResponse{
		Success:       true,
		WorkspaceID:   ws.ID,
		WorkspaceSlug: ws.Slug,
	}, nil
}

func (s *invitationService) GetInviteInfo(ctx context.Context, code string) (*models.InviteInfoResponse, error) {
	link, err := s.linkRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, apperr.Internal("failed to look up invite link", err)
	}
	if link == nil {
		return nil, apperr.NotFound("invite not found")
	}

	ws, err := s.workspaceRepo.FindByID(ctx, link.WorkspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve workspace", err)
	}
	if ws == nil {
		return nil, apperr.NotFound("workspace not found")
	}

	// Inviter lookup is display-only; failures degrade to a nil name.
	var inviterName *string
	if link.CreatedBy != nil {
		if inviter, err := s.userRepo.FindByID(ctx, *link.CreatedBy); err == nil && inviter != nil {
			inviterName = &inviter.Name
		}
	}

	return &models.InviteInfoResponse{
		WorkspaceName: ws.Name,
		WorkspaceSlug: ws.Slug,
		InviterName:   inviterName,
		ExpiresAt:     link.ExpiresAt,
		IsExpired:     time.Now().After(link.ExpiresAt),
		IsUsed:        link.IsUsed,
	}, nil
}

func (s *invitationService) ListInviteLinks(ctx context.Context, workspaceID, adminID string) ([]models.InviteLinkResponse, error) {
	ws, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, ws.ID, adminID); err != nil {
		return nil, err
	}

	links, err := s.linkRepo.ListRedeemable(ctx, ws.ID, time.Now())
	if err != nil {
		return nil, apperr.Internal("failed to list invite links", err)
	}

	out := make([]models.InviteLinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, models.InviteLinkResponse{
			ID:        l.ID,
			Code:      l.InviteCode,
			Role:      l.Role,
			CreatedAt: l.CreatedAt,
			ExpiresAt: l.ExpiresAt,
		})
	}
	return out, nil
}

func (s *invitationService) DeleteInviteLink(ctx context.Context, adminID string, linkID int64) error {
	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		return apperr.Internal("failed to look up invite link", err)
	}
	if link == nil {
		return apperr.NotFound("invite link not found")
	}

	if _, err := s.requireAdmin(ctx, link.WorkspaceID, adminID); err != nil {
		return err
	}

	deleted, err := s.linkRepo.Delete(ctx, linkID)
	if err != nil {
		return apperr.Internal("failed to delete invite link", err)
	}
	if !deleted {
		return apperr.NotFound("invite link not found")
	}

	s.logActivity(ctx, link.WorkspaceID, repository.ActivityLinkDeleted, adminID, link.InviteCode, "")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastLinkDeleted(link.WorkspaceID, link.ID, adminID)
	}
	return nil
}
