package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"projecthub/internal/common"
	"projecthub/internal/domain/model"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context, limit, offset int) ([]model.Project, int, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.ProjectStatus]int, error)
}

type pgProjectRepository struct {
	db *sql.DB
}

func NewPgProjectRepository(db *sql.DB) ProjectRepository {
	return &pgProjectRepository{db: db}
}

func (r *pgProjectRepository) Create(ctx context.Context, project *model.Project) error {
	query := `INSERT INTO projects (id, name, description, status, due_date, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description, project.Status, project.DueDate, project.CreatedByID)
	if err != nil {
		return fmt.Errorf("pgProjectRepository.Create: %w", err)
	}
	return nil
}

// Creator columns ride along on every read so responses can embed the
// creator summary without a second round trip.
const projectSelect = `
	SELECT p.id, p.name, p.description, p.status, p.due_date, p.created_by, p.created_at, p.updated_at,
	       u.id, u.name, u.username
	FROM projects p
	JOIN users u ON u.id = p.created_by`

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*model.Project, error) {
	query := projectSelect + ` WHERE p.id = $1`
	project := &model.Project{Creator: &model.UserSummary{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Name, &project.Description, &project.Status,
		&project.DueDate, &project.CreatedByID, &project.CreatedAt, &project.UpdatedAt,
		&project.Creator.ID, &project.Creator.Name, &project.Creator.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProjectRepository.FindByID: %w", err)
	}
	return project, nil
}

func (r *pgProjectRepository) List(ctx context.Context, limit, offset int) ([]model.Project, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM projects`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProjectRepository.List count: %w", err)
	}

	query := projectSelect + ` ORDER BY p.created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProjectRepository.List: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		project := model.Project{Creator: &model.UserSummary{}}
		if err := rows.Scan(
			&project.ID, &project.Name, &project.Description, &project.Status,
			&project.DueDate, &project.CreatedByID, &project.CreatedAt, &project.UpdatedAt,
			&project.Creator.ID, &project.Creator.Name, &project.Creator.Username,
		); err != nil {
			return nil, 0, fmt.Errorf("pgProjectRepository.List scan: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, total, rows.Err()
}

func (r *pgProjectRepository) Update(ctx context.Context, project *model.Project) error {
	query := `UPDATE projects SET name = $2, description = $3, status = $4, due_date = $5, updated_at = now()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description, project.Status, project.DueDate)
	if err != nil {
		return fmt.Errorf("pgProjectRepository.Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgProjectRepository.Update: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete cascades to the project's tasks via the FK at the storage layer.
func (r *pgProjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProjectRepository.Delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgProjectRepository.Delete: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProjectRepository) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM projects GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("pgProjectRepository.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := map[model.ProjectStatus]int{}
	for rows.Next() {
		var status model.ProjectStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("pgProjectRepository.CountByStatus scan: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
