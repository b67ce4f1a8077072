package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Marga-Ghale/ora-members-backend/internal/models"
)

// InviteLink is a single-use, time-boxed capability to join a workspace.
// The invite code is the external lookup key and is immutable.
type InviteLink struct {
	ID          int64
	WorkspaceID string
	InviteCode  string
	Role        models.MemberRole
	IsUsed      bool
	CreatedBy   *string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	UsedBy      *string
}

// Redeemable reports whether the link can still be redeemed at t.
func (l *InviteLink) Redeemable(t time.Time) bool {
	return !l.IsUsed && !t.After(l.ExpiresAt)
}

type InviteLinkRepository interface {
	Create(ctx context.Context, link *InviteLink) error
	FindByCode(ctx context.Context, code string) (*InviteLink, error)
	FindByID(ctx context.Context, id int64) (*InviteLink, error)
	// ListRedeemable returns unused links that have not expired as of now.
	// Expired-but-unused links stay stored; they are just hidden here.
	ListRedeemable(ctx context.Context, workspaceID string, now time.Time) ([]*InviteLink, error)
	// Delete hard-deletes the link; false means it was already gone.
	Delete(ctx context.Context, id int64) (bool, error)
	// Redeem marks the link used and creates the resulting member in one
	// transaction, so a crash cannot leave a used link without its member
	// or a member with a still-redeemable link. Returns ErrLinkUsed when
	// the conditional use-marking matched no row, ErrDuplicateMember when
	// the member insert hit the live-email unique index.
	Redeem(ctx context.Context, linkID int64, userID string, member *Member) error
}

type pgInviteLinkRepository struct {
	pool *pgxpool.Pool
}

func NewInviteLinkRepository(pool *pgxpool.Pool) InviteLinkRepository {
	return &pgInviteLinkRepository{pool: pool}
}

const inviteLinkColumns = `id, workspace_id, invite_code, role, is_used, created_by, created_at, expires_at, used_at, used_by`

func scanInviteLink(row pgx.Row) (*InviteLink, error) {
	l := &InviteLink{}
	err := row.Scan(
		&l.ID, &l.WorkspaceID, &l.InviteCode, &l.Role, &l.IsUsed,
		&l.CreatedBy, &l.CreatedAt, &l.ExpiresAt, &l.UsedAt, &l.UsedBy,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *pgInviteLinkRepository) Create(ctx context.Context, link *InviteLink) error {
	query := `
		INSERT INTO workspace_invite_links (workspace_id, invite_code, role, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_used, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		link.WorkspaceID, link.InviteCode, link.Role, link.CreatedBy, link.ExpiresAt,
	).Scan(&link.ID, &link.IsUsed, &link.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *pgInviteLinkRepository) FindByCode(ctx context.Context, code string) (*InviteLink, error) {
	query := `SELECT ` + inviteLinkColumns + ` FROM workspace_invite_links WHERE invite_code = $1`
	return scanInviteLink(r.pool.QueryRow(ctx, query, code))
}

func (r *pgInviteLinkRepository) FindByID(ctx context.Context, id int64) (*InviteLink, error) {
	query := `SELECT ` + inviteLinkColumns + ` FROM workspace_invite_links WHERE id = $1`
	return scanInviteLink(r.pool.QueryRow(ctx, query, id))
}

func (r *pgInviteLinkRepository) ListRedeemable(ctx context.Context, workspaceID string, now time.Time) ([]*InviteLink, error) {
	query := `
		SELECT ` + inviteLinkColumns + `
		FROM workspace_invite_links
		WHERE workspace_id = $1 AND is_used = FALSE AND expires_at >= $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, workspaceID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*InviteLink
	for rows.Next() {
		l := &InviteLink{}
		if err := rows.Scan(
			&l.ID, &l.WorkspaceID, &l.InviteCode, &l.Role, &l.IsUsed,
			&l.CreatedBy, &l.CreatedAt, &l.ExpiresAt, &l.UsedAt, &l.UsedBy,
		); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *pgInviteLinkRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workspace_invite_links WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgInviteLinkRepository) Redeem(ctx context.Context, linkID int64, userID string, member *Member) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Conditional use-marking first: under concurrent redemptions only one
	// transaction matches the is_used = FALSE row.
	tag, err := tx.Exec(ctx, `
		UPDATE workspace_invite_links
		SET is_used = TRUE, used_at = NOW(), used_by = $2
		WHERE id = $1 AND is_used = FALSE
	`, linkID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkUsed
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO workspace_members (workspace_id, email, user_id, role, status, created_by)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
		RETURNING id, public_id, created_at
	`, member.WorkspaceID, member.Email, member.UserID,
		member.Role, member.Status, member.CreatedBy,
	).Scan(&member.ID, &member.PublicID, &member.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateMember
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
