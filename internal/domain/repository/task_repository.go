package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"projecthub/internal/common"
	"projecthub/internal/domain/model"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]model.Task, int, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.TaskStatus]int, error)
}

type pgTaskRepository struct {
	db *sql.DB
}

func NewPgTaskRepository(db *sql.DB) TaskRepository {
	return &pgTaskRepository{db: db}
}

func (r *pgTaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (id, project_id, title, description, status, assigned_to)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.ProjectID, task.Title, task.Description, task.Status, task.AssignedToID)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Create: %w", err)
	}
	return nil
}

const taskSelect = `
	SELECT t.id, t.project_id, t.title, t.description, t.status, t.assigned_to, t.created_at, t.updated_at,
	       u.id, u.name, u.username
	FROM tasks t
	LEFT JOIN users u ON u.id = t.assigned_to`

func scanTask(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Task, error) {
	task := &model.Task{}
	var assigneeID, assigneeName, assigneeUsername sql.NullString
	err := scanner.Scan(
		&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status,
		&task.AssignedToID, &task.CreatedAt, &task.UpdatedAt,
		&assigneeID, &assigneeName, &assigneeUsername,
	)
	if err != nil {
		return nil, err
	}
	if assigneeID.Valid {
		task.Assignee = &model.UserSummary{
			ID:       assigneeID.String,
			Name:     assigneeName.String,
			Username: assigneeUsername.String,
		}
	}
	return task, nil
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	query := taskSelect + ` WHERE t.id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.FindByID: %w", err)
	}
	return task, nil
}

func (r *pgTaskRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]model.Task, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM tasks WHERE project_id = $1`, projectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgTaskRepository.ListByProject count: %w", err)
	}

	query := taskSelect + ` WHERE t.project_id = $1 ORDER BY t.created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgTaskRepository.ListByProject: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgTaskRepository.ListByProject scan: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, total, rows.Err()
}

func (r *pgTaskRepository) Update(ctx context.Context, task *model.Task) error {
	query := `UPDATE tasks SET title = $2, description = $3, status = $4, assigned_to = $5, updated_at = now()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.AssignedToID)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Update: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) CountByStatus(ctx context.Context) (map[model.TaskStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := map[model.TaskStatus]int{}
	for rows.Next() {
		var status model.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.CountByStatus scan: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
