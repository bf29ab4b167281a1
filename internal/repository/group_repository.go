package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"meetvault/internal/domain"
)

type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create создаёт группу и сразу добавляет создателя администратором
func (r *GroupRepository) Create(ctx context.Context, g *domain.Group) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO groups (name, description, created_by)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`

	err = tx.QueryRowxContext(ctx, query, g.Name, g.Description, g.CreatedBy).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO user_groups (user_id, group_id, role) VALUES ($1, $2, $3)`,
		g.CreatedBy, g.ID, domain.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("failed to add creator to group: %w", err)
	}

	return tx.Commit()
}

func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var group domain.Group
	query := `SELECT * FROM groups WHERE id = $1`

	err := r.db.GetContext(ctx, &group, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &group, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]domain.Group, error) {
	var groups []domain.Group
	query := `SELECT * FROM groups ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &groups, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	return groups, nil
}

func (r *GroupRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Group, error) {
	var groups []domain.Group
	query := `
        SELECT g.* FROM groups g
        INNER JOIN user_groups ug ON ug.group_id = g.id
        WHERE ug.user_id = $1
        ORDER BY g.created_at DESC`

	err := r.db.SelectContext(ctx, &groups, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by user: %w", err)
	}

	return groups, nil
}

func (r *GroupRepository) Update(ctx context.Context, id uuid.UUID, upd domain.GroupUpdate) (*domain.Group, error) {
	var group domain.Group
	query := `
        UPDATE groups
        SET name = COALESCE($1, name),
            description = COALESCE($2, description)
        WHERE id = $3
        RETURNING *`

	err := r.db.QueryRowxContext(ctx, query, upd.Name, upd.Description, id).StructScan(&group)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return &group, nil
}

func (r *GroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID, role string) error {
	query := `
        INSERT INTO user_groups (user_id, group_id, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, group_id) DO UPDATE SET role = EXCLUDED.role`

	_, err := r.db.ExecContext(ctx, query, userID, groupID, role)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}

	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM user_groups WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("membership: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	var members []domain.GroupMember
	query := `SELECT * FROM user_groups WHERE group_id = $1 ORDER BY created_at`

	err := r.db.SelectContext(ctx, &members, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}

	return members, nil
}

// GetMemberRole возвращает роль пользователя в группе.
// Если пользователь не состоит в группе — domain.ErrForbidden.
func (r *GroupRepository) GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (string, error) {
	var role string
	query := `SELECT role FROM user_groups WHERE group_id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, &role, query, groupID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %s is not a member of group %s: %w", userID, groupID, domain.ErrForbidden)
		}
		return "", fmt.Errorf("failed to get member role: %w", err)
	}

	return role, nil
}
