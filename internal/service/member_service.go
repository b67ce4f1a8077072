package service

import (
	"context"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
)

// MemberService serves read-side membership views.
type MemberService interface {
	ListMembers(ctx context.Context, workspaceID, callerID string) ([]models.MemberResponse, error)
	ListActivity(ctx context.Context, workspaceID, callerID string, limit int) ([]models.ActivityResponse, error)
}

type memberService struct {
	memberRepo    repository.MemberRepository
	workspaceRepo repository.WorkspaceRepository
	activityRepo  repository.ActivityRepository
}

func NewMemberService(
	memberRepo repository.MemberRepository,
	workspaceRepo repository.WorkspaceRepository,
	activityRepo repository.ActivityRepository,
) MemberService {
	return &memberService{
		memberRepo:    memberRepo,
		workspaceRepo: workspaceRepo,
		activityRepo:  activityRepo,
	}
}

// ListMembers returns all live members. Any live member may read the
// roster, not just admins.
func (s *memberService) ListMembers(ctx context.Context, workspaceID, callerID string) ([]models.MemberResponse, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve workspace", err)
	}
	if ws == nil {
		return nil, apperr.NotFound("workspace not found")
	}

	caller, err := s.memberRepo.FindLiveByUser(ctx, ws.ID, callerID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve caller membership", err)
	}
	if caller == nil {
		return nil, apperr.Forbidden("not a member of this workspace")
	}

	members, err := s.memberRepo.ListLive(ctx, ws.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list members", err)
	}

	out := make([]models.MemberResponse, 0, len(members))
	for _, m := range members {
		resp := models.MemberResponse{
			ID:        m.PublicID,
			Email:     m.Email,
			Role:      m.Role,
			Status:    m.Status,
			CreatedAt: m.CreatedAt,
		}
		if m.UserID != nil {
			user := &models.UserResponse{
				ID:     *m.UserID,
				Email:  m.Email,
				Avatar: m.UserAvatar,
			}
			if m.UserName != nil {
				user.Name = *m.UserName
			}
			resp.User = user
		}
		out = append(out, resp)
	}
	return out, nil
}

// ListActivity returns the workspace's recent membership audit trail.
// Admin only.
func (s *memberService) ListActivity(ctx context.Context, workspaceID, callerID string, limit int) ([]models.ActivityResponse, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve workspace", err)
	}
	if ws == nil {
		return nil, apperr.NotFound("workspace not found")
	}

	caller, err := s.memberRepo.FindLiveByUser(ctx, ws.ID, callerID)
	if err != nil {
		return nil, apperr.Internal("failed to resolve caller membership", err)
	}
	if caller == nil || caller.Role != models.MemberRoleAdmin {
		return nil, apperr.Forbidden("admin role required")
	}

	entries, err := s.activityRepo.ListByWorkspace(ctx, ws.ID, limit)
	if err != nil {
		return nil, apperr.Internal("failed to list activity", err)
	}

	out := make([]models.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.ActivityResponse{
			ID:        e.ID,
			Action:    e.Action,
			ActorID:   e.ActorID,
			Subject:   e.Subject,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}
