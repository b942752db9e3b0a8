package api

import (
	"net/http"
	"time"

	"projecthub/internal/api/handler"
	"projecthub/internal/api/middleware"
	"projecthub/internal/app/service"
	"projecthub/internal/common/security"
	"projecthub/internal/platform/cache"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	projectService *service.ProjectService,
	taskService *service.TaskService,
	access *service.AccessService,
	denylist cache.TokenDenylist,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies token from "Authorization: Bearer <token>", puts claims
	// in context. Authorization decisions happen in the Authenticator
	// and RequirePermission middlewares on the protected group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService, access)
	taskHandler := handler.NewTaskHandler(taskService, access)
	dashboardHandler := handler.NewDashboardHandler(projectService, taskService)

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Route("/auth", func(authRouter chi.Router) {
			authRouter.Group(func(public chi.Router) {
				authHandler.RegisterPublicRoutes(public)
			})
			authRouter.Group(func(protected chi.Router) {
				protected.Use(middleware.Authenticator(denylist))
				authHandler.RegisterProtectedRoutes(protected)
			})
		})

		apiRouter.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticator(denylist))

			protected.Get("/me", authHandler.Me)

			protected.With(middleware.RequirePermission(access, "view dashboard")).
				Get("/dashboard", dashboardHandler.Index)

			protected.Route("/users", func(usersRouter chi.Router) {
				usersRouter.Use(middleware.RequirePermission(access, "manage users"))
				userHandler.RegisterRoutes(usersRouter)
			})

			protected.Route("/projects", func(projectsRouter chi.Router) {
				projectHandler.RegisterRoutes(projectsRouter)
				projectsRouter.Route("/{projectID}/tasks", taskHandler.RegisterRoutes)
			})

			protected.With(middleware.RequirePermission(access, "assign tasks")).
				Get("/assignable-users", taskHandler.AssignableUsers)
		})
	})

	return r
}
