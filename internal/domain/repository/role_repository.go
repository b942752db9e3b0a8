package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"projecthub/internal/common"
	"projecthub/internal/domain/model"
)

// RoleRepository is the single persistence surface for the role and
// permission graph. Every query is scoped by guard name.
type RoleRepository interface {
	EnsureRole(ctx context.Context, name, guard string) (int64, error)
	EnsurePermission(ctx context.Context, name, guard string) (int64, error)
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	FindRoleByName(ctx context.Context, name, guard string) (*model.Role, error)
	AssignRole(ctx context.Context, userID string, roleID int64) error
	SyncRoles(ctx context.Context, userID string, roleIDs []int64) error
	RoleNamesForUser(ctx context.Context, userID, guard string) ([]string, error)
	PermissionNamesForUser(ctx context.Context, userID, guard string) ([]string, error)
}

type pgRoleRepository struct {
	db *sql.DB
}

func NewPgRoleRepository(db *sql.DB) RoleRepository {
	return &pgRoleRepository{db: db}
}

func (r *pgRoleRepository) EnsureRole(ctx context.Context, name, guard string) (int64, error) {
	query := `INSERT INTO roles (name, guard_name) VALUES ($1, $2)
	          ON CONFLICT (name, guard_name) DO UPDATE SET name = EXCLUDED.name
	          RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, name, guard).Scan(&id); err != nil {
		return 0, fmt.Errorf("pgRoleRepository.EnsureRole: %w", err)
	}
	return id, nil
}

func (r *pgRoleRepository) EnsurePermission(ctx context.Context, name, guard string) (int64, error) {
	query := `INSERT INTO permissions (name, guard_name) VALUES ($1, $2)
	          ON CONFLICT (name, guard_name) DO UPDATE SET name = EXCLUDED.name
	          RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, name, guard).Scan(&id); err != nil {
		return 0, fmt.Errorf("pgRoleRepository.EnsurePermission: %w", err)
	}
	return id, nil
}

func (r *pgRoleRepository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	query := `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
	          ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("pgRoleRepository.GrantPermission: %w", err)
	}
	return nil
}

func (r *pgRoleRepository) FindRoleByName(ctx context.Context, name, guard string) (*model.Role, error) {
	query := `SELECT id, name, guard_name, created_at FROM roles
	          WHERE name = $1 AND guard_name = $2`
	role := &model.Role{}
	err := r.db.QueryRowContext(ctx, query, name, guard).Scan(
		&role.ID, &role.Name, &role.GuardName, &role.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRoleRepository.FindRoleByName: %w", err)
	}
	return role, nil
}

func (r *pgRoleRepository) AssignRole(ctx context.Context, userID string, roleID int64) error {
	query := `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
	          ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("pgRoleRepository.AssignRole: %w", err)
	}
	return nil
}

// SyncRoles replaces the user's role set wholesale, in one transaction.
func (r *pgRoleRepository) SyncRoles(ctx context.Context, userID string, roleIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgRoleRepository.SyncRoles begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("pgRoleRepository.SyncRoles delete: %w", err)
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID); err != nil {
			return fmt.Errorf("pgRoleRepository.SyncRoles insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgRoleRepository.SyncRoles commit: %w", err)
	}
	return nil
}

func (r *pgRoleRepository) RoleNamesForUser(ctx context.Context, userID, guard string) ([]string, error) {
	query := `SELECT r.name FROM roles r
	          JOIN user_roles ur ON ur.role_id = r.id
	          WHERE ur.user_id = $1 AND r.guard_name = $2
	          ORDER BY r.name`
	return r.queryNames(ctx, query, userID, guard)
}

// PermissionNamesForUser computes the effective permission set: the
// union of permissions across every role assigned to the user.
func (r *pgRoleRepository) PermissionNamesForUser(ctx context.Context, userID, guard string) ([]string, error) {
	query := `SELECT DISTINCT p.name FROM permissions p
	          JOIN role_permissions rp ON rp.permission_id = p.id
	          JOIN user_roles ur ON ur.role_id = rp.role_id
	          WHERE ur.user_id = $1 AND p.guard_name = $2
	          ORDER BY p.name`
	return r.queryNames(ctx, query, userID, guard)
}

func (r *pgRoleRepository) queryNames(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgRoleRepository query: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("pgRoleRepository scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
