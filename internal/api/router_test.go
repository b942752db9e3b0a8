package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"projecthub/internal/app/service"
	"projecthub/internal/common"
	"projecthub/internal/common/security"
	"projecthub/internal/domain/model"
	"projecthub/internal/platform/cache"
	"projecthub/internal/platform/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end request tests through the real router: fake repositories
// underneath, everything else (services, middlewares, handlers) real.

type memRoleRepo struct {
	nextID    int64
	roleIDs   map[string]int64
	roleNames map[int64]string
	permIDs   map[string]int64
	permNames map[int64]string
	rolePerms map[int64][]int64
	userRoles map[string][]int64
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{
		roleIDs:   map[string]int64{},
		roleNames: map[int64]string{},
		permIDs:   map[string]int64{},
		permNames: map[int64]string{},
		rolePerms: map[int64][]int64{},
		userRoles: map[string][]int64{},
	}
}

func (m *memRoleRepo) EnsureRole(_ context.Context, name, _ string) (int64, error) {
	if id, ok := m.roleIDs[name]; ok {
		return id, nil
	}
	m.nextID++
	m.roleIDs[name] = m.nextID
	m.roleNames[m.nextID] = name
	return m.nextID, nil
}

func (m *memRoleRepo) EnsurePermission(_ context.Context, name, _ string) (int64, error) {
	if id, ok := m.permIDs[name]; ok {
		return id, nil
	}
	m.nextID++
	m.permIDs[name] = m.nextID
	m.permNames[m.nextID] = name
	return m.nextID, nil
}

func (m *memRoleRepo) GrantPermission(_ context.Context, roleID, permissionID int64) error {
	m.rolePerms[roleID] = append(m.rolePerms[roleID], permissionID)
	return nil
}

func (m *memRoleRepo) FindRoleByName(_ context.Context, name, guard string) (*model.Role, error) {
	id, ok := m.roleIDs[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &model.Role{ID: id, Name: name, GuardName: guard}, nil
}

func (m *memRoleRepo) AssignRole(_ context.Context, userID string, roleID int64) error {
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *memRoleRepo) SyncRoles(_ context.Context, userID string, roleIDs []int64) error {
	m.userRoles[userID] = append([]int64{}, roleIDs...)
	return nil
}

func (m *memRoleRepo) RoleNamesForUser(_ context.Context, userID, _ string) ([]string, error) {
	names := []string{}
	for _, roleID := range m.userRoles[userID] {
		names = append(names, m.roleNames[roleID])
	}
	sort.Strings(names)
	return names, nil
}

func (m *memRoleRepo) PermissionNamesForUser(_ context.Context, userID, _ string) ([]string, error) {
	seen := map[string]bool{}
	for _, roleID := range m.userRoles[userID] {
		for _, permID := range m.rolePerms[roleID] {
			seen[m.permNames[permID]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type memUserRepo struct {
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*model.User{}}
}

func (m *memUserRepo) Create(_ context.Context, user *model.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return common.ErrConflict
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUserRepo) List(_ context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, user := range m.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) ListAssignable(_ context.Context) ([]model.UserSummary, error) {
	out := []model.UserSummary{}
	for _, user := range m.users {
		out = append(out, model.UserSummary{ID: user.ID, Name: user.Name, Username: user.Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memProjectRepo struct {
	projects map[string]*model.Project
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{projects: map[string]*model.Project{}}
}

func (m *memProjectRepo) Create(_ context.Context, project *model.Project) error {
	cp := *project
	if cp.Creator == nil {
		cp.Creator = &model.UserSummary{ID: project.CreatedByID}
	}
	m.projects[project.ID] = &cp
	return nil
}

func (m *memProjectRepo) FindByID(_ context.Context, id string) (*model.Project, error) {
	project, ok := m.projects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *project
	return &cp, nil
}

func (m *memProjectRepo) List(_ context.Context, limit, offset int) ([]model.Project, int, error) {
	out := []model.Project{}
	for _, project := range m.projects {
		out = append(out, *project)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memProjectRepo) Update(_ context.Context, project *model.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *memProjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memProjectRepo) CountByStatus(_ context.Context) (map[model.ProjectStatus]int, error) {
	counts := map[model.ProjectStatus]int{}
	for _, project := range m.projects {
		counts[project.Status]++
	}
	return counts, nil
}

type memTaskRepo struct {
	tasks map[string]*model.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[string]*model.Task{}}
}

func (m *memTaskRepo) Create(_ context.Context, task *model.Task) error {
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memTaskRepo) FindByID(_ context.Context, id string) (*model.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (m *memTaskRepo) ListByProject(_ context.Context, projectID string, limit, offset int) ([]model.Task, int, error) {
	out := []model.Task{}
	for _, task := range m.tasks {
		if task.ProjectID == projectID {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memTaskRepo) Update(_ context.Context, task *model.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTaskRepo) CountByStatus(_ context.Context) (map[model.TaskStatus]int, error) {
	counts := map[model.TaskStatus]int{}
	for _, task := range m.tasks {
		counts[task.Status]++
	}
	return counts, nil
}

type apiFixture struct {
	server   http.Handler
	users    *service.UserService
	roleRepo *memRoleRepo
}

var apiRoleBundles = map[string][]string{
	model.RoleAdmin: {
		"manage users",
		"view project", "create project", "update project", "delete project",
		"view task", "create task", "update task", "delete task",
		"assign tasks", "comment tasks", "view dashboard",
	},
	model.RoleProjectManager: {
		"view project", "create project", "update project", "delete project",
		"view task", "create task", "update task", "delete task",
		"assign tasks", "comment tasks", "view dashboard",
	},
	model.RoleTeamMember: {
		"view project", "view task", "update task", "comment tasks", "view dashboard",
	},
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	const guard = "api"
	config.AppConfig = &config.Config{
		JWTKey:    []byte("router-test-secret"),
		JWTExp:    time.Hour,
		GuardName: guard,
	}
	security.InitJWT()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	denylist := cache.NewRedisDenylist(rdb)

	roleRepo := newMemRoleRepo()
	userRepo := newMemUserRepo()
	projectRepo := newMemProjectRepo()
	taskRepo := newMemTaskRepo()

	ctx := context.Background()
	for roleName, perms := range apiRoleBundles {
		roleID, err := roleRepo.EnsureRole(ctx, roleName, guard)
		require.NoError(t, err)
		for _, perm := range perms {
			permID, err := roleRepo.EnsurePermission(ctx, perm, guard)
			require.NoError(t, err)
			require.NoError(t, roleRepo.GrantPermission(ctx, roleID, permID))
		}
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	access := service.NewAccessService(roleRepo, guard, 128, time.Minute)
	authService := service.NewAuthService(userRepo, roleRepo, access, denylist, guard, log)
	userService := service.NewUserService(userRepo, roleRepo, access, guard)
	projectService := service.NewProjectService(projectRepo)
	taskService := service.NewTaskService(taskRepo, projectRepo, userRepo)

	return &apiFixture{
		server:   NewRouter(authService, userService, projectService, taskService, access, denylist),
		users:    userService,
		roleRepo: roleRepo,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

// createUser provisions an account through the admin service and logs
// it in over HTTP, returning the bearer token and user id.
func (f *apiFixture) createUser(t *testing.T, username, role string) (string, string) {
	t.Helper()
	user, err := f.users.Create(context.Background(), service.CreateUserRequest{
		Name:     username,
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)

	rr := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token, user.ID
}

func TestRegisterAndMe(t *testing.T) {
	f := setupAPI(t)

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name":     "Alice",
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	assert.Equal(t, "bearer", body["token_type"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{model.RoleTeamMember}, user["roles"])

	rr = f.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody(t, rr)
	assert.Equal(t, "alice", me["username"])
	assert.Contains(t, me["permissions"], "view project")
	assert.NotContains(t, me["permissions"], "create project")
}

func TestRegisterRejectsElevatedRole(t *testing.T) {
	f := setupAPI(t)

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name":     "Mallory",
		"username": "mallory",
		"password": "secret123",
		"role":     model.RoleProjectManager,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	fields, ok := body["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "role")
}

func TestProjectPermissionBoundary(t *testing.T) {
	f := setupAPI(t)
	pmToken, _ := f.createUser(t, "pm", model.RoleProjectManager)
	teamToken, _ := f.createUser(t, "team", model.RoleTeamMember)

	rr := f.do(t, http.MethodPost, "/api/projects", pmToken, map[string]string{
		"name": "Launch",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody(t, rr)["project"].(map[string]interface{})
	projectID := created["id"].(string)

	// Readable by a team member.
	rr = f.do(t, http.MethodGet, "/api/projects/"+projectID, teamToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// But not writable.
	rr = f.do(t, http.MethodPut, "/api/projects/"+projectID, teamToken, map[string]string{
		"name": "Hijacked",
	})
	require.Equal(t, http.StatusForbidden, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])

	// The project is untouched.
	rr = f.do(t, http.MethodGet, "/api/projects/"+projectID, pmToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Launch", decodeBody(t, rr)["name"])
}

func TestTaskScopedToProject(t *testing.T) {
	f := setupAPI(t)
	pmToken, _ := f.createUser(t, "pm", model.RoleProjectManager)

	makeProject := func(name string) string {
		rr := f.do(t, http.MethodPost, "/api/projects", pmToken, map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		return decodeBody(t, rr)["project"].(map[string]interface{})["id"].(string)
	}
	projectA := makeProject("Alpha")
	projectB := makeProject("Beta")

	rr := f.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%s/tasks", projectA), pmToken, map[string]string{
		"title": "Write docs",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	taskID := decodeBody(t, rr)["task"].(map[string]interface{})["id"].(string)

	// Reachable under its own project.
	rr = f.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%s/tasks/%s", projectA, taskID), pmToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Not under another one.
	rr = f.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%s/tasks/%s", projectB, taskID), pmToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Nor under a project that does not exist at all.
	rr = f.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%s/tasks/%s", uuid.NewString(), taskID), pmToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUsersRequireManagePermission(t *testing.T) {
	f := setupAPI(t)
	adminToken, _ := f.createUser(t, "admin", model.RoleAdmin)
	pmToken, _ := f.createUser(t, "pm", model.RoleProjectManager)

	rr := f.do(t, http.MethodGet, "/api/users", pmToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/users", adminToken, map[string]string{
		"name":     "Bob",
		"username": "bob",
		"email":    "bob@example.com",
		"password": "secret123",
		"role":     model.RoleProjectManager,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestLogoutRevokesToken(t *testing.T) {
	f := setupAPI(t)
	token, _ := f.createUser(t, "carol", model.RoleTeamMember)

	rr := f.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDashboardCounts(t *testing.T) {
	f := setupAPI(t)
	pmToken, _ := f.createUser(t, "pm", model.RoleProjectManager)
	teamToken, _ := f.createUser(t, "team", model.RoleTeamMember)

	rr := f.do(t, http.MethodPost, "/api/projects", pmToken, map[string]string{"name": "One"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = f.do(t, http.MethodPost, "/api/projects", pmToken, map[string]string{
		"name":   "Two",
		"status": string(model.ProjectStatusInProgress),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Team members hold "view dashboard" too.
	rr = f.do(t, http.MethodGet, "/api/dashboard", teamToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	projects, ok := body["projects"].(map[string]interface{})
	require.True(t, ok, rr.Body.String())
	assert.Equal(t, float64(1), projects[string(model.ProjectStatusToDo)])
	assert.Equal(t, float64(1), projects[string(model.ProjectStatusInProgress)])
}
