package models

import "time"

// MemberRole represents a member's role within a workspace
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleGuest  MemberRole = "guest"
)

// ValidMemberRole reports whether r is a role this service accepts.
func ValidMemberRole(r MemberRole) bool {
	switch r {
	case MemberRoleAdmin, MemberRoleMember, MemberRoleGuest:
		return true
	}
	return false
}

// InvitableRoles are the roles an invite link may assign.
func InvitableRoles() []MemberRole {
	return []MemberRole{MemberRoleAdmin, MemberRoleMember}
}

// MemberStatus represents the lifecycle state of a membership
type MemberStatus string

const (
	// MemberStatusInvited is set when a member row was created by an email
	// invite and the invitee has not signed in yet.
	MemberStatusInvited MemberStatus = "invited"
	// MemberStatusActive is set once the invitee completed sign-in, or
	// immediately when joining through an invite link.
	MemberStatusActive MemberStatus = "active"
)

// ============================================
// Request DTOs
// ============================================

type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type GenerateInviteLinkRequest struct {
	Role          string `json:"role,omitempty"`
	ExpiresInDays int    `json:"expiresInDays,omitempty"`
}

// ============================================
// Response DTOs
// ============================================

type MemberResponse struct {
	ID        string        `json:"id"` // public id
	Email     string        `json:"email"`
	Role      MemberRole    `json:"role"`
	Status    MemberStatus  `json:"status"`
	User      *UserResponse `json:"user,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type InviteMemberResponse struct {
	MemberID string `json:"memberId"`
}

type RemoveMemberResponse struct {
	Success bool `json:"success"`
	// SeatReleased is false when the membership was removed but the
	// billing-side seat decrement failed.
	SeatReleased bool `json:"seatReleased"`
}

type UserResponse struct {
	ID     string  `json:"id"`
	Email  string  `json:"email"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

type ActivityResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	ActorID   *string   `json:"actorId,omitempty"`
	Subject   *string   `json:"subject,omitempty"`
	Details   *string   `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
