package service

import (
	"context"
	"sort"

	"projecthub/internal/common"
	"projecthub/internal/domain/model"
)

// In-memory fakes for the repository interfaces, shared by the service
// tests in this package.

type fakeRoleRepo struct {
	nextID    int64
	roleIDs   map[string]int64    // role name -> id
	roleNames map[int64]string    // id -> role name
	permIDs   map[string]int64    // permission name -> id
	rolePerms map[int64][]int64   // role id -> permission ids
	userRoles map[string][]int64  // user id -> role ids
	permName  map[int64]string    // permission id -> name
	guard     string
}

func newFakeRoleRepo(guard string) *fakeRoleRepo {
	return &fakeRoleRepo{
		roleIDs:   map[string]int64{},
		roleNames: map[int64]string{},
		permIDs:   map[string]int64{},
		rolePerms: map[int64][]int64{},
		userRoles: map[string][]int64{},
		permName:  map[int64]string{},
		guard:     guard,
	}
}

func (f *fakeRoleRepo) EnsureRole(_ context.Context, name, guard string) (int64, error) {
	if guard != f.guard {
		name = name + "@" + guard
	}
	if id, ok := f.roleIDs[name]; ok {
		return id, nil
	}
	f.nextID++
	f.roleIDs[name] = f.nextID
	f.roleNames[f.nextID] = name
	return f.nextID, nil
}

func (f *fakeRoleRepo) EnsurePermission(_ context.Context, name, guard string) (int64, error) {
	if guard != f.guard {
		name = name + "@" + guard
	}
	if id, ok := f.permIDs[name]; ok {
		return id, nil
	}
	f.nextID++
	f.permIDs[name] = f.nextID
	f.permName[f.nextID] = name
	return f.nextID, nil
}

func (f *fakeRoleRepo) GrantPermission(_ context.Context, roleID, permissionID int64) error {
	for _, id := range f.rolePerms[roleID] {
		if id == permissionID {
			return nil
		}
	}
	f.rolePerms[roleID] = append(f.rolePerms[roleID], permissionID)
	return nil
}

func (f *fakeRoleRepo) FindRoleByName(_ context.Context, name, guard string) (*model.Role, error) {
	id, ok := f.roleIDs[name]
	if !ok || guard != f.guard {
		return nil, common.ErrNotFound
	}
	return &model.Role{ID: id, Name: name, GuardName: guard}, nil
}

func (f *fakeRoleRepo) AssignRole(_ context.Context, userID string, roleID int64) error {
	for _, id := range f.userRoles[userID] {
		if id == roleID {
			return nil
		}
	}
	f.userRoles[userID] = append(f.userRoles[userID], roleID)
	return nil
}

func (f *fakeRoleRepo) SyncRoles(_ context.Context, userID string, roleIDs []int64) error {
	f.userRoles[userID] = append([]int64{}, roleIDs...)
	return nil
}

func (f *fakeRoleRepo) RoleNamesForUser(_ context.Context, userID, guard string) ([]string, error) {
	if guard != f.guard {
		return []string{}, nil
	}
	names := []string{}
	for _, roleID := range f.userRoles[userID] {
		names = append(names, f.roleNames[roleID])
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRoleRepo) PermissionNamesForUser(_ context.Context, userID, guard string) ([]string, error) {
	if guard != f.guard {
		return []string{}, nil
	}
	seen := map[string]bool{}
	for _, roleID := range f.userRoles[userID] {
		for _, permID := range f.rolePerms[roleID] {
			seen[f.permName[permID]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type fakeUserRepo struct {
	users map[string]*model.User // by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return common.ErrConflict
		}
		if existing.Email != nil && user.Email != nil && *existing.Email == *user.Email {
			return common.ErrConflict
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, user := range f.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) ListAssignable(_ context.Context) ([]model.UserSummary, error) {
	out := []model.UserSummary{}
	for _, user := range f.users {
		out = append(out, model.UserSummary{ID: user.ID, Name: user.Name, Username: user.Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeProjectRepo struct {
	projects map[string]*model.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[string]*model.Project{}}
}

func (f *fakeProjectRepo) Create(_ context.Context, project *model.Project) error {
	cp := *project
	if cp.Creator == nil {
		cp.Creator = &model.UserSummary{ID: project.CreatedByID}
	}
	f.projects[project.ID] = &cp
	return nil
}

func (f *fakeProjectRepo) FindByID(_ context.Context, id string) (*model.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *project
	return &cp, nil
}

func (f *fakeProjectRepo) List(_ context.Context, limit, offset int) ([]model.Project, int, error) {
	out := []model.Project{}
	for _, project := range f.projects {
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

func (f *fakeProjectRepo) Update(_ context.Context, project *model.Project) error {
	if _, ok := f.projects[project.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *project
	f.projects[project.ID] = &cp
	return nil
}

func (f *fakeProjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.projects[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeProjectRepo) CountByStatus(_ context.Context) (map[model.ProjectStatus]int, error) {
	counts := map[model.ProjectStatus]int{}
	for _, project := range f.projects {
		counts[project.Status]++
	}
	return counts, nil
}

type fakeTaskRepo struct {
	tasks map[string]*model.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*model.Task{}}
}

func (f *fakeTaskRepo) Create(_ context.Context, task *model.Task) error {
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTaskRepo) FindByID(_ context.Context, id string) (*model.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (f *fakeTaskRepo) ListByProject(_ context.Context, projectID string, limit, offset int) ([]model.Task, int, error) {
	out := []model.Task{}
	for _, task := range f.tasks {
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

func (f *fakeTaskRepo) Update(_ context.Context, task *model.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) CountByStatus(_ context.Context) (map[model.TaskStatus]int, error) {
	counts := map[model.TaskStatus]int{}
	for _, task := range f.tasks {
		counts[task.Status]++
	}
	return counts, nil
}
