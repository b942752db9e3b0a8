package model

import (
	"time"
)

type ProjectStatus string

const (
	ProjectStatusToDo       ProjectStatus = "to-do"
	ProjectStatusInProgress ProjectStatus = "in-progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCanceled   ProjectStatus = "canceled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusToDo, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusCanceled:
		return true
	}
	return false
}

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	DueDate     *time.Time    `json:"due_date"`
	CreatedByID string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Creator *UserSummary `json:"creator,omitempty"`
}
