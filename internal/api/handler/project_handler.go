package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"projecthub/internal/api/middleware"
	"projecthub/internal/app/service"
	"projecthub/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	access         *service.AccessService
}

func NewProjectHandler(projectService *service.ProjectService, access *service.AccessService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, access: access}
}

// Each method carries its own declared permission; the handler itself
// contains no access-control decisions.
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(h.access, "view project")).Get("/", h.list)
	r.With(middleware.RequirePermission(h.access, "create project")).Post("/", h.create)
	r.With(middleware.RequirePermission(h.access, "view project")).Get("/{projectID}", h.get)
	r.With(middleware.RequirePermission(h.access, "update project")).Put("/{projectID}", h.update)
	r.With(middleware.RequirePermission(h.access, "delete project")).Delete("/{projectID}", h.delete)
}

func paginationParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}

func (h *ProjectHandler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r)
	projects, err := h.projectService.List(r.Context(), page, perPage)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	project, err := h.projectService.Create(r.Context(), userID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Project created successfully",
		"project": project,
	})
}

func (h *ProjectHandler) get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projectService.Get(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	project, err := h.projectService.Update(r.Context(), chi.URLParam(r, "projectID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Project updated successfully",
		"project": project,
	})
}

func (h *ProjectHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projectService.Delete(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Project deleted successfully"})
}
