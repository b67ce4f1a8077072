package models

import "time"

const (
	// Invite links live between 1 and 30 days.
	InviteLinkMinDays     = 1
	InviteLinkMaxDays     = 30
	InviteLinkDefaultDays = 7
)

type InviteLinkResponse struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Role      MemberRole `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type GeneratedInviteLinkResponse struct {
	URL       string    `json:"url"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// InviteInfoResponse is the public, pre-authentication preview of a link.
// Unlike redemption it deliberately exposes isExpired/isUsed so the UI can
// explain why a link no longer works.
type InviteInfoResponse struct {
	WorkspaceName string    `json:"workspaceName"`
	WorkspaceSlug string    `json:"workspaceSlug"`
	InviterName   *string   `json:"inviterName"`
	ExpiresAt     time.Time `json:"expiresAt"`
	IsExpired     bool      `json:"isExpired"`
	IsUsed        bool      `json:"isUsed"`
}

type RedeemInviteLinkResponse struct {
	Success       bool   `json:"success"`
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceSlug string `json:"workspaceSlug"`
}
