package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Marga-Ghale/ora-members-backend/internal/models"
)

// Member is a workspace membership row. Rows are soft-deleted, never
// removed, so the history of who was in a workspace survives.
type Member struct {
	ID          int64
	PublicID    string
	WorkspaceID string
	Email       string
	UserID      *string
	Role        models.MemberRole
	Status      models.MemberStatus
	CreatedBy   *string
	CreatedAt   time.Time
	DeletedAt   *time.Time
	DeletedBy   *string
}

// MemberWithUser joins the member row with the linked account's display data.
type MemberWithUser struct {
	Member
	UserName   *string
	UserAvatar *string
}

type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	FindByPublicID(ctx context.Context, publicID string) (*Member, error)
	FindLiveByEmail(ctx context.Context, workspaceID, email string) (*Member, error)
	FindLiveByUser(ctx context.Context, workspaceID, userID string) (*Member, error)
	ListLive(ctx context.Context, workspaceID string) ([]*MemberWithUser, error)
	// SoftDelete marks the row deleted. It only matches rows whose
	// deleted_at is still null; false means the member was already gone.
	SoftDelete(ctx context.Context, id int64, deletedBy string) (bool, error)
	// Activate flips invited → active exactly once; false means the row
	// was absent, deleted, or already active.
	Activate(ctx context.Context, publicID, userID string) (bool, error)
	CountLiveActive(ctx context.Context, workspaceID string) (int, error)
}

type pgMemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgMemberRepository{pool: pool}
}

const memberColumns = `id, public_id, workspace_id, email, user_id, role, status, created_by, created_at, deleted_at, deleted_by`

func scanMember(row pgx.Row) (*Member, error) {
	m := &Member{}
	err := row.Scan(
		&m.ID, &m.PublicID, &m.WorkspaceID, &m.Email, &m.UserID,
		&m.Role, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.DeletedAt, &m.DeletedBy,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMemberRepository) Create(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO workspace_members (workspace_id, email, user_id, role, status, created_by)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
		RETURNING id, public_id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		member.WorkspaceID, member.Email, member.UserID,
		member.Role, member.Status, member.CreatedBy,
	).Scan(&member.ID, &member.PublicID, &member.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateMember
	}
	return err
}

func (r *pgMemberRepository) FindByPublicID(ctx context.Context, publicID string) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM workspace_members
		WHERE public_id = $1 AND deleted_at IS NULL
	`
	return scanMember(r.pool.QueryRow(ctx, query, publicID))
}

func (r *pgMemberRepository) FindLiveByEmail(ctx context.Context, workspaceID, email string) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM workspace_members
		WHERE workspace_id = $1 AND email = LOWER($2) AND deleted_at IS NULL
	`
	return scanMember(r.pool.QueryRow(ctx, query, workspaceID, email))
}

func (r *pgMemberRepository) FindLiveByUser(ctx context.Context, workspaceID, userID string) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	return scanMember(r.pool.QueryRow(ctx, query, workspaceID, userID))
}

func (r *pgMemberRepository) ListLive(ctx context.Context, workspaceID string) ([]*MemberWithUser, error) {
	query := `
		SELECT wm.id, wm.public_id, wm.workspace_id, wm.email, wm.user_id, wm.role, wm.status,
		       wm.created_by, wm.created_at, wm.deleted_at, wm.deleted_by,
		       u.name, u.avatar
		FROM workspace_members wm
		LEFT JOIN users u ON u.id = wm.user_id
		WHERE wm.workspace_id = $1 AND wm.deleted_at IS NULL
		ORDER BY wm.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*MemberWithUser
	for rows.Next() {
		m := &MemberWithUser{}
		if err := rows.Scan(
			&m.ID, &m.PublicID, &m.WorkspaceID, &m.Email, &m.UserID, &m.Role, &m.Status,
			&m.CreatedBy, &m.CreatedAt, &m.DeletedAt, &m.DeletedBy,
			&m.UserName, &m.UserAvatar,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgMemberRepository) SoftDelete(ctx context.Context, id int64, deletedBy string) (bool, error) {
	query := `
		UPDATE workspace_members
		SET deleted_at = NOW(), deleted_by = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, id, deletedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgMemberRepository) Activate(ctx context.Context, publicID, userID string) (bool, error) {
	query := `
		UPDATE workspace_members
		SET status = $3, user_id = COALESCE(user_id, $2)
		WHERE public_id = $1 AND status = $4 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, publicID, userID, models.MemberStatusActive, models.MemberStatusInvited)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgMemberRepository) CountLiveActive(ctx context.Context, workspaceID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM workspace_members
		WHERE workspace_id = $1 AND status = $2 AND deleted_at IS NULL
	`
	var count int
	err := r.pool.QueryRow(ctx, query, workspaceID, models.MemberStatusActive).Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
