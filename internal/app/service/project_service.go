package service

import (
	"context"
	"fmt"
	"time"

	"projecthub/internal/common"
	"projecthub/internal/domain/model"
	"projecthub/internal/domain/repository"

	"github.com/google/uuid"
)

type ProjectService struct {
	projectRepo repository.ProjectRepository
}

func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

type ProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"due_date"`
}

type PaginatedProjects struct {
	Data    []model.Project `json:"data"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// parseDueDate accepts a plain date or a full timestamp, matching what
// the frontend date picker sends.
func parseDueDate(raw string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

func (s *ProjectService) List(ctx context.Context, page, perPage int) (*PaginatedProjects, error) {
	projects, total, err := s.projectRepo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &PaginatedProjects{Data: projects, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	return s.projectRepo.FindByID(ctx, id)
}

func (s *ProjectService) Create(ctx context.Context, creatorID string, req ProjectRequest) (*model.Project, error) {
	fields := map[string]string{}
	if req.Name == nil || *req.Name == "" || len(*req.Name) > 255 {
		fields["name"] = "name is required and must be at most 255 characters"
	}

	status := model.ProjectStatusToDo
	if req.Status != nil && *req.Status != "" {
		status = model.ProjectStatus(*req.Status)
		if !status.Valid() {
			fields["status"] = "status must be one of to-do, in-progress, completed, canceled"
		}
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := parseDueDate(*req.DueDate)
		if err != nil {
			fields["due_date"] = "due_date must be a valid date"
		} else {
			dueDate = parsed
		}
	}

	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	project := &model.Project{
		ID:          uuid.NewString(),
		Name:        *req.Name,
		Description: req.Description,
		Status:      status,
		DueDate:     dueDate,
		CreatedByID: creatorID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	// Re-read to pick up the creator summary and timestamps.
	return s.projectRepo.FindByID(ctx, project.ID)
}

func (s *ProjectService) Update(ctx context.Context, id string, req ProjectRequest) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if req.Name != nil {
		if *req.Name == "" || len(*req.Name) > 255 {
			fields["name"] = "name must be between 1 and 255 characters"
		} else {
			project.Name = *req.Name
		}
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Status != nil {
		status := model.ProjectStatus(*req.Status)
		if !status.Valid() {
			fields["status"] = "status must be one of to-do, in-progress, completed, canceled"
		} else {
			project.Status = status
		}
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			project.DueDate = nil
		} else if parsed, err := parseDueDate(*req.DueDate); err != nil {
			fields["due_date"] = "due_date must be a valid date"
		} else {
			project.DueDate = parsed
		}
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	return s.projectRepo.FindByID(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.projectRepo.Delete(ctx, id)
}

func (s *ProjectService) StatusCounts(ctx context.Context) (map[model.ProjectStatus]int, error) {
	return s.projectRepo.CountByStatus(ctx)
}
