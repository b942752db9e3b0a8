package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"projecthub/internal/common"
	"projecthub/internal/common/security"
	"projecthub/internal/domain/model"
	"projecthub/internal/domain/repository"

	"github.com/google/uuid"
)

// UserService backs the admin-only user management API. Unlike
// self-registration, creating a user here may grant any canonical role.
type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	access   *AccessService
	guard    string
}

func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	access *AccessService,
	guard string,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		access:   access,
		guard:    guard,
	}
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	fields := map[string]string{}
	if req.Name == "" || len(req.Name) > 255 {
		fields["name"] = "name is required and must be at most 255 characters"
	}
	if req.Username == "" || len(req.Username) > 255 {
		fields["username"] = "username is required and must be at most 255 characters"
	}
	if req.Email == "" {
		fields["email"] = "email is required"
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "email must be a valid email address"
	}
	if len(req.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if !model.IsAssignableRole(req.Role) {
		fields["role"] = "role must be one of admin, project_manager, team_member"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	role, err := s.roleRepo.FindRoleByName(ctx, req.Role, s.guard)
	if err != nil {
		return nil, fmt.Errorf("role lookup: %w", err)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := req.Email
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Username:     req.Username,
		Email:        &email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewValidationError(map[string]string{
				"username": "username or email has already been taken",
			})
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.roleRepo.AssignRole(ctx, user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("role assignment: %w", err)
	}
	s.access.Invalidate(user.ID)

	user.Roles = []string{role.Name}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if req.Name != nil {
		if *req.Name == "" || len(*req.Name) > 255 {
			fields["name"] = "name must be between 1 and 255 characters"
		} else {
			user.Name = *req.Name
		}
	}
	if req.Username != nil {
		if *req.Username == "" || len(*req.Username) > 255 {
			fields["username"] = "username must be between 1 and 255 characters"
		} else {
			user.Username = *req.Username
		}
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			fields["email"] = "email must be a valid email address"
		} else {
			user.Email = req.Email
		}
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < 6 {
			fields["password"] = "password must be at least 6 characters"
		} else {
			hash, err := security.HashPassword(*req.Password)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
			user.PasswordHash = hash
		}
	}
	if req.Role != nil && !model.IsAssignableRole(*req.Role) {
		fields["role"] = "role must be one of admin, project_manager, team_member"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewValidationError(map[string]string{
				"username": "username or email has already been taken",
			})
		}
		return nil, err
	}

	// Role replacement is wholesale: the new set is exactly the one
	// requested role. The permission cache entry must go with it.
	if req.Role != nil {
		role, err := s.roleRepo.FindRoleByName(ctx, *req.Role, s.guard)
		if err != nil {
			return nil, fmt.Errorf("role lookup: %w", err)
		}
		if err := s.roleRepo.SyncRoles(ctx, user.ID, []int64{role.ID}); err != nil {
			return nil, fmt.Errorf("role sync: %w", err)
		}
		s.access.Invalidate(user.ID)
		user.Roles = []string{role.Name}
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.access.Invalidate(id)
	return nil
}
