package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Workspace struct {
	ID        string
	Name      string
	Slug      string
	OwnerID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WorkspaceRepository interface {
	FindByID(ctx context.Context, id string) (*Workspace, error)
	FindBySlug(ctx context.Context, slug string) (*Workspace, error)
	// ListIDs returns every workspace id; used by the seat audit job.
	ListIDs(ctx context.Context) ([]string, error)
}

type pgWorkspaceRepository struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepository(pool *pgxpool.Pool) WorkspaceRepository {
	return &pgWorkspaceRepository{pool: pool}
}

func (r *pgWorkspaceRepository) FindByID(ctx context.Context, id string) (*Workspace, error) {
	query := `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM workspaces WHERE id = $1
	`
	ws := &Workspace{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (r *pgWorkspaceRepository) FindBySlug(ctx context.Context, slug string) (*Workspace, error) {
	query := `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM workspaces WHERE slug = $1
	`
	ws := &Workspace{}
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (r *pgWorkspaceRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM workspaces`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
