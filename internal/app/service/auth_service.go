package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"projecthub/internal/common"
	"projecthub/internal/common/security"
	"projecthub/internal/domain/model"
	"projecthub/internal/domain/repository"
	"projecthub/internal/platform/cache"
	"projecthub/internal/platform/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuthService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	access   *AccessService
	denylist cache.TokenDenylist
	guard    string
	log      *logrus.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	access *AccessService,
	denylist cache.TokenDenylist,
	guard string,
	log *logrus.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		access:   access,
		denylist: denylist,
		guard:    guard,
		log:      log,
	}
}

type RegisterRequest struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the shape every token-issuing endpoint returns.
type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	User        model.Identity `json:"user"`
}

func validateRegistration(req RegisterRequest) map[string]string {
	fields := map[string]string{}
	if req.Name == "" || len(req.Name) > 255 {
		fields["name"] = "name is required and must be at most 255 characters"
	}
	if req.Username == "" || len(req.Username) > 255 {
		fields["username"] = "username is required and must be at most 255 characters"
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			fields["email"] = "email must be a valid email address"
		}
	}
	if len(req.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	return fields
}

// Register creates a user and immediately authenticates it.
//
// Self-registration only ever grants the lowest-privilege role. The
// role field is still accepted for compatibility with the frontend,
// but anything above team_member is rejected: elevated roles are
// assigned through the user-management API by an administrator.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	fields := validateRegistration(req)
	if req.Role != "" && req.Role != model.RoleTeamMember {
		fields["role"] = "elevated roles can only be assigned by an administrator"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, common.NewValidationError(map[string]string{
			"username": "username has already been taken",
		})
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("register lookup: %w", err)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := req.Email
	if email != nil && *email == "" {
		email = nil
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Username:     req.Username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewValidationError(map[string]string{
				"email": "email has already been taken",
			})
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	role, err := s.roleRepo.FindRoleByName(ctx, model.RoleTeamMember, s.guard)
	if err != nil {
		return nil, fmt.Errorf("registration role lookup: %w", err)
	}
	if err := s.roleRepo.AssignRole(ctx, user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("registration role assignment: %w", err)
	}
	s.access.Invalidate(user.ID)

	// The user row already exists at this point, so a failure here is
	// an inconsistency that must surface as a server error, not get
	// swallowed into a 401.
	resp, err := s.issueToken(ctx, user)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("auto-login after registration failed")
		return nil, fmt.Errorf("user created but authentication failed: %w", common.ErrInternalServer)
	}
	return resp, nil
}

// Login verifies credentials and issues a token. Failures are a bare
// unauthorized error so the response never reveals whether the
// username exists.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrUnauthorized
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, common.ErrUnauthorized
	}

	return s.issueToken(ctx, user)
}

// Refresh issues a fresh token for an already-authenticated caller.
// Signature, expiry, and denylist checks happened in the middleware;
// the old token is not denylisted, it just expires naturally.
func (s *AuthService) Refresh(ctx context.Context, userID string) (*TokenResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}
	return s.issueToken(ctx, user)
}

// Logout denylists the exact token used for the call. Other active
// tokens for the same user are untouched.
func (s *AuthService) Logout(ctx context.Context, rawToken string, expiresAt time.Time) error {
	signature, err := security.TokenSignature(rawToken)
	if err != nil {
		return common.ErrUnauthorized
	}
	if err := s.denylist.Revoke(ctx, signature, time.Until(expiresAt)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me resolves a user id to the identity payload the frontend session
// context consumes.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.Identity, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	return s.buildIdentity(ctx, user)
}

func (s *AuthService) buildIdentity(ctx context.Context, user *model.User) (*model.Identity, error) {
	roles, err := s.access.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	perms, err := s.access.EffectivePermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &model.Identity{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Username:    user.Username,
		Roles:       roles,
		Permissions: perms,
	}, nil
}

func (s *AuthService) issueToken(ctx context.Context, user *model.User) (*TokenResponse, error) {
	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	identity, err := s.buildIdentity(ctx, user)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(config.AppConfig.JWTExp.Seconds()),
		User:        *identity,
	}, nil
}
