package handler

import (
	"net/http"

	"projecthub/internal/app/service"
	"projecthub/internal/common"
)

type DashboardHandler struct {
	projectService *service.ProjectService
	taskService    *service.TaskService
}

func NewDashboardHandler(projectService *service.ProjectService, taskService *service.TaskService) *DashboardHandler {
	return &DashboardHandler{projectService: projectService, taskService: taskService}
}

// Index returns aggregate counts of projects and tasks by status.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	projectCounts, err := h.projectService.StatusCounts(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	taskCounts, err := h.taskService.StatusCounts(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projectCounts,
		"tasks":    taskCounts,
	})
}
