package handler

import (
	"encoding/json"
	"net/http"

	"projecthub/internal/api/middleware"
	"projecthub/internal/app/service"
	"projecthub/internal/common"

	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	taskService *service.TaskService
	access      *service.AccessService
}

func NewTaskHandler(taskService *service.TaskService, access *service.AccessService) *TaskHandler {
	return &TaskHandler{taskService: taskService, access: access}
}

// Routes are nested under /projects/{projectID}.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(h.access, "view task")).Get("/", h.list)
	r.With(middleware.RequirePermission(h.access, "create task")).Post("/", h.create)
	r.With(middleware.RequirePermission(h.access, "view task")).Get("/{taskID}", h.get)
	r.With(middleware.RequirePermission(h.access, "update task")).Put("/{taskID}", h.update)
	r.With(middleware.RequirePermission(h.access, "delete task")).Delete("/{taskID}", h.delete)
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r)
	tasks, err := h.taskService.ListByProject(r.Context(), chi.URLParam(r, "projectID"), page, perPage)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskService.Create(r.Context(), chi.URLParam(r, "projectID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Task created successfully",
		"task":    task,
	})
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.Get(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskService.Update(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task updated successfully",
		"task":    task,
	})
}

func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.taskService.Delete(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// AssignableUsers is mounted at GET /assignable-users.
func (h *TaskHandler) AssignableUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.taskService.AssignableUsers(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}
