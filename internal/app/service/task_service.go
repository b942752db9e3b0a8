package service

import (
	"context"
	"errors"
	"fmt"

	"projecthub/internal/common"
	"projecthub/internal/domain/model"
	"projecthub/internal/domain/repository"

	"github.com/google/uuid"
)

// TaskService scopes every task operation to the project named in the
// URL. A task reached through the wrong project is indistinguishable
// from a missing one.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

type TaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assigned_to"`
}

type PaginatedTasks struct {
	Data    []model.Task `json:"data"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
}

func (s *TaskService) ensureProject(ctx context.Context, projectID string) error {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return err
	}
	return nil
}

// scopedTask loads the task and enforces project ownership.
func (s *TaskService) scopedTask(ctx context.Context, projectID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, common.ErrNotFound
	}
	return task, nil
}

func (s *TaskService) validateAssignee(ctx context.Context, assignedTo *string, fields map[string]string) {
	if assignedTo == nil || *assignedTo == "" {
		return
	}
	if _, err := s.userRepo.FindByID(ctx, *assignedTo); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			fields["assigned_to"] = "assigned user does not exist"
			return
		}
		fields["assigned_to"] = "could not verify assigned user"
	}
}

func (s *TaskService) ListByProject(ctx context.Context, projectID string, page, perPage int) (*PaginatedTasks, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, total, err := s.taskRepo.ListByProject(ctx, projectID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &PaginatedTasks{Data: tasks, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *TaskService) Get(ctx context.Context, projectID, taskID string) (*model.Task, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.scopedTask(ctx, projectID, taskID)
}

func (s *TaskService) Create(ctx context.Context, projectID string, req TaskRequest) (*model.Task, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if req.Title == nil || *req.Title == "" || len(*req.Title) > 255 {
		fields["title"] = "title is required and must be at most 255 characters"
	}
	status := model.TaskStatusToDo
	if req.Status != nil && *req.Status != "" {
		status = model.TaskStatus(*req.Status)
		if !status.Valid() {
			fields["status"] = "status must be one of To Do, In Progress, Done"
		}
	}
	s.validateAssignee(ctx, req.AssignedTo, fields)
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	assignedTo := req.AssignedTo
	if assignedTo != nil && *assignedTo == "" {
		assignedTo = nil
	}
	task := &model.Task{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Title:        *req.Title,
		Description:  req.Description,
		Status:       status,
		AssignedToID: assignedTo,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	return s.taskRepo.FindByID(ctx, task.ID)
}

func (s *TaskService) Update(ctx context.Context, projectID, taskID string, req TaskRequest) (*model.Task, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	task, err := s.scopedTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if req.Title != nil {
		if *req.Title == "" || len(*req.Title) > 255 {
			fields["title"] = "title must be between 1 and 255 characters"
		} else {
			task.Title = *req.Title
		}
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		if !status.Valid() {
			fields["status"] = "status must be one of To Do, In Progress, Done"
		} else {
			task.Status = status
		}
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			task.AssignedToID = nil
		} else {
			s.validateAssignee(ctx, req.AssignedTo, fields)
			if _, bad := fields["assigned_to"]; !bad {
				task.AssignedToID = req.AssignedTo
			}
		}
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return s.taskRepo.FindByID(ctx, taskID)
}

func (s *TaskService) Delete(ctx context.Context, projectID, taskID string) error {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return err
	}
	task, err := s.scopedTask(ctx, projectID, taskID)
	if err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, task.ID)
}

func (s *TaskService) AssignableUsers(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.userRepo.ListAssignable(ctx)
	if err != nil {
		return nil, fmt.Errorf("assignable users: %w", err)
	}
	return users, nil
}

func (s *TaskService) StatusCounts(ctx context.Context) (map[model.TaskStatus]int, error) {
	return s.taskRepo.CountByStatus(ctx)
}
