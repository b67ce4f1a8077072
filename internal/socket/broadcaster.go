package socket

import "fmt"

// Broadcaster provides high-level methods for broadcasting membership events
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func workspaceRoom(workspaceID string) string {
	return fmt.Sprintf("workspace:%s", workspaceID)
}

// BroadcastMemberInvited notifies a workspace that a member was invited
func (b *Broadcaster) BroadcastMemberInvited(workspaceID, memberID, email string, excludeUserID string) {
	b.hub.SendToRoom(workspaceRoom(workspaceID), MessageMemberInvited, map[string]interface{}{
		"workspaceId": workspaceID,
		"memberId":    memberID,
		"email":       email,
	}, excludeUserID)
}

// BroadcastMemberActivated notifies a workspace that an invited member signed in
func (b *Broadcaster) BroadcastMemberActivated(workspaceID, memberID string) {
	b.hub.SendToRoom(workspaceRoom(workspaceID), MessageMemberActivated, map[string]interface{}{
		"workspaceId": workspaceID,
		"memberId":    memberID,
	}, "")
}

// BroadcastMemberRemoved notifies a workspace that a member was removed
func (b *Broadcaster) BroadcastMemberRemoved(workspaceID, memberID string, excludeUserID string) {
	b.hub.SendToRoom(workspaceRoom(workspaceID), MessageMemberRemoved, map[string]interface{}{
		"workspaceId": workspaceID,
		"memberId":    memberID,
	}, excludeUserID)
}

// BroadcastLinkCreated notifies a workspace that an invite link was generated
func (b *Broadcaster) BroadcastLinkCreated(workspaceID string, linkID int64, excludeUserID string) {
	b.hub.SendToRoom(workspaceRoom(workspaceID), MessageLinkCreated, map[string]interface{}{
		"workspaceId": workspaceID,
		"linkId":      linkID,
	}, excludeUserID)
}

// BroadcastLinkRedeemed notifies a workspace that an invite link was redeemed
func (b *Broadcaster) BroadcastLinkRedeemed(workspaceID string, linkID int64, memberID string) {
	b.hub.SendToRoom(workspaceRoom(workspaceID), MessageLinkRedeemed, map[string]interface{}{
		"workspaceId": workspaceID,
		"linkId":      linkID,
		"memberId":    memberID,
	}, "")
}

// BroadcastLinkDeleted notifies a workspace that an invite link was revoked
func (b *Broadcaster) BroadcastLinkDeleted(workspaceID string, linkID int64, excludeUserID string) {
	b.hub.SendToRoom(workspaceRoom(workspaceID), MessageLinkDeleted, map[string]interface{}{
		"workspaceId": workspaceID,
		"linkId":      linkID,
	}, excludeUserID)
}
