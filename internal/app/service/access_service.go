package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"projecthub/internal/domain/repository"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AccessService is the single source of truth for "does user U have
// permission P". The effective permission set is the union of the
// permissions of every role assigned to the user, scoped by guard.
//
// Results are served from a bounded TTL cache; staleness after a
// role/permission mutation is at most the cache TTL unless the mutation
// path calls Invalidate, which every mutation in this codebase does.
type AccessService struct {
	roleRepo repository.RoleRepository
	guard    string
	cache    *expirable.LRU[string, []string]
}

func NewAccessService(roleRepo repository.RoleRepository, guard string, cacheSize int, cacheTTL time.Duration) *AccessService {
	s := &AccessService{
		roleRepo: roleRepo,
		guard:    guard,
	}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, []string](cacheSize, nil, cacheTTL)
	}
	return s
}

// EffectivePermissions returns the user's permission names, cached.
func (s *AccessService) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	if s.cache != nil {
		if perms, ok := s.cache.Get(userID); ok {
			return perms, nil
		}
	}

	perms, err := s.roleRepo.PermissionNamesForUser(ctx, userID, s.guard)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions for user %s: %w", userID, err)
	}

	if s.cache != nil {
		s.cache.Add(userID, perms)
	}
	return perms, nil
}

// Can reports whether the user holds the named permission.
func (s *AccessService) Can(ctx context.Context, userID, permission string) (bool, error) {
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(perms, permission), nil
}

// CanAny reports whether the user holds at least one of the named
// permissions. This is the OR-list semantics routes declare.
func (s *AccessService) CanAny(ctx context.Context, userID string, permissions ...string) (bool, error) {
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, want := range permissions {
		if slices.Contains(perms, want) {
			return true, nil
		}
	}
	return false, nil
}

// HasRole reports whether roleName is among the user's assigned roles.
func (s *AccessService) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	roles, err := s.RoleNames(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(roles, roleName), nil
}

// RoleNames returns the user's role names within the guard, uncached:
// role listings feed identity payloads, not hot-path decisions.
func (s *AccessService) RoleNames(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.roleRepo.RoleNamesForUser(ctx, userID, s.guard)
	if err != nil {
		return nil, fmt.Errorf("resolve roles for user %s: %w", userID, err)
	}
	return roles, nil
}

// Invalidate drops the cached permission set for one user. Called by
// every user-role mutation.
func (s *AccessService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.Remove(userID)
	}
}

// InvalidateAll drops the whole cache. Called when a role-permission
// grant changes, since that affects every holder of the role.
func (s *AccessService) InvalidateAll() {
	if s.cache != nil {
		s.cache.Purge()
	}
}
