package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"projecthub/internal/common"
	"projecthub/internal/common/security"
	"projecthub/internal/domain/model"
	"projecthub/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Canonical permission list. Role bundles below are fixed at bootstrap
// and not editable through the API.
var seedPermissions = []string{
	"manage users",
	"view project",
	"create project",
	"update project",
	"delete project",
	"view task",
	"create task",
	"update task",
	"delete task",
	"assign tasks",
	"comment tasks",
	"view dashboard",
}

var seedRoles = map[string][]string{
	model.RoleAdmin: seedPermissions, // all of them
	model.RoleProjectManager: {
		"view project", "create project", "update project", "delete project",
		"view task", "create task", "update task", "delete task",
		"assign tasks", "comment tasks", "view dashboard",
	},
	model.RoleTeamMember: {
		"view project", "view task", "update task", "comment tasks", "view dashboard",
	},
}

type demoUser struct {
	name     string
	username string
	email    string
	password string
	role     string
}

var demoUsers = []demoUser{
	{"Admin", "admin", "admin@example.com", "admin123", model.RoleAdmin},
	{"Project Manager", "pm", "pm@example.com", "pm123", model.RoleProjectManager},
	{"Team Member", "team", "team@example.com", "team123", model.RoleTeamMember},
}

// Seed upserts the role/permission graph and, optionally, a set of demo
// accounts. Safe to run on every startup.
func Seed(ctx context.Context, db *sql.DB, guard string, withDemoUsers bool, log *logrus.Logger) error {
	roleRepo := repository.NewPgRoleRepository(db)
	userRepo := repository.NewPgUserRepository(db)

	permIDs := make(map[string]int64, len(seedPermissions))
	for _, name := range seedPermissions {
		id, err := roleRepo.EnsurePermission(ctx, name, guard)
		if err != nil {
			return fmt.Errorf("seed permission %q: %w", name, err)
		}
		permIDs[name] = id
	}

	roleIDs := make(map[string]int64, len(seedRoles))
	for roleName, perms := range seedRoles {
		roleID, err := roleRepo.EnsureRole(ctx, roleName, guard)
		if err != nil {
			return fmt.Errorf("seed role %q: %w", roleName, err)
		}
		roleIDs[roleName] = roleID
		for _, permName := range perms {
			if err := roleRepo.GrantPermission(ctx, roleID, permIDs[permName]); err != nil {
				return fmt.Errorf("grant %q to %q: %w", permName, roleName, err)
			}
		}
	}
	log.WithField("guard", guard).Info("role/permission graph seeded")

	if !withDemoUsers {
		return nil
	}

	for _, du := range demoUsers {
		existing, err := userRepo.FindByUsername(ctx, du.username)
		if err == nil {
			log.WithField("username", existing.Username).Debug("demo user already present")
			continue
		}
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("seed user %q: %w", du.username, err)
		}

		hash, err := security.HashPassword(du.password)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", du.username, err)
		}
		email := du.email
		user := &model.User{
			ID:           uuid.NewString(),
			Name:         du.name,
			Username:     du.username,
			Email:        &email,
			PasswordHash: hash,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %q: %w", du.username, err)
		}
		if err := roleRepo.AssignRole(ctx, user.ID, roleIDs[du.role]); err != nil {
			return fmt.Errorf("seed user %q role: %w", du.username, err)
		}
		log.WithFields(logrus.Fields{"username": du.username, "role": du.role}).Info("demo user created")
	}
	return nil
}
