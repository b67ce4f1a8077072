package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Membership activity actions.
const (
	ActivityMemberInvited   = "member_invited"
	ActivityMemberActivated = "member_activated"
	ActivityMemberRemoved   = "member_removed"
	ActivityLinkCreated     = "link_created"
	ActivityLinkRedeemed    = "link_redeemed"
	ActivityLinkDeleted     = "link_deleted"
)

// MembershipActivity is an append-only audit row. Writes are best-effort:
// the engine never fails an operation because the log insert failed.
type MembershipActivity struct {
	ID          int64     `db:"id"`
	WorkspaceID string    `db:"workspace_id"`
	Action      string    `db:"action"`
	ActorID     *string   `db:"actor_id"`
	Subject     *string   `db:"subject"`
	Details     *string   `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

type ActivityRepository interface {
	Log(ctx context.Context, a *MembershipActivity) error
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*MembershipActivity, error)
}

type sqlxActivityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &sqlxActivityRepository{db: db}
}

func (r *sqlxActivityRepository) Log(ctx context.Context, a *MembershipActivity) error {
	query := `
		INSERT INTO membership_activity (workspace_id, action, actor_id, subject, details)
		VALUES (:workspace_id, :action, :actor_id, :subject, :details)
	`
	_, err := r.db.NamedExecContext(ctx, query, a)
	return err
}

func (r *sqlxActivityRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*MembershipActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, workspace_id, action, actor_id, subject, details, created_at
		FROM membership_activity
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var activities []*MembershipActivity
	if err := r.db.SelectContext(ctx, &activities, query, workspaceID, limit); err != nil {
		return nil, err
	}
	return activities, nil
}
