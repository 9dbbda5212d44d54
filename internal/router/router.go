// Package router declares the HTTP surface and its access rules.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/handler"
	"github.com/noah-isme/training-api/internal/middleware"
	"github.com/noah-isme/training-api/internal/models"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Auth        *handler.AuthHandler
	Profile     *handler.ProfileHandler
	Modules     *handler.ModuleHandler
	Assignments *handler.AssignmentHandler
	Dashboard   *handler.DashboardHandler
	Trainees    *handler.TraineeHandler
	Messages    *handler.MessageHandler
	Users       *handler.UserHandler
}

// Deps carries the cross-cutting collaborators of the route table.
type Deps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditRecorder
	Logger *zap.Logger
}

// Route is one entry of the route table. Public routes skip authentication;
// an empty Roles list admits any authenticated caller.
type Route struct {
	Method  string
	Path    string
	Public  bool
	Roles   []models.UserRole
	Audit   string
	Handler gin.HandlerFunc
}

var (
	instructorOnly = []models.UserRole{models.RoleInstructor}
	traineeOnly    = []models.UserRole{models.RoleTrainee}
	superAdminOnly = []models.UserRole{models.RoleSuperAdmin}
)

// Routes returns the full route table relative to the API prefix.
func Routes(h Handlers) []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/auth/register", Public: true, Handler: h.Auth.Register},
		{Method: http.MethodPost, Path: "/auth/login", Public: true, Handler: h.Auth.Login},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: h.Auth.Logout},

		{Method: http.MethodGet, Path: "/user/profile", Handler: h.Profile.Get},
		{Method: http.MethodPut, Path: "/user/profile", Handler: h.Profile.Update},
		{Method: http.MethodPost, Path: "/user/change-password", Handler: h.Auth.ChangePassword},

		{Method: http.MethodGet, Path: "/modules", Roles: instructorOnly, Handler: h.Modules.List},
		{Method: http.MethodPost, Path: "/modules", Roles: instructorOnly, Audit: models.AuditActionModuleCreate, Handler: h.Modules.Create},
		{Method: http.MethodGet, Path: "/modules/:id", Roles: instructorOnly, Handler: h.Modules.Get},
		{Method: http.MethodPut, Path: "/modules/:id", Roles: instructorOnly, Audit: models.AuditActionModuleUpdate, Handler: h.Modules.Update},
		{Method: http.MethodDelete, Path: "/modules/:id", Roles: instructorOnly, Handler: h.Modules.Delete},
		{Method: http.MethodPost, Path: "/modules/:id/assign", Roles: instructorOnly, Handler: h.Assignments.BulkAssign},
		{Method: http.MethodGet, Path: "/modules/:id/assignments", Roles: instructorOnly, Handler: h.Assignments.ModuleAssignments},

		{Method: http.MethodGet, Path: "/assignments", Roles: instructorOnly, Handler: h.Assignments.List},
		{Method: http.MethodPost, Path: "/assignments", Roles: instructorOnly, Audit: models.AuditActionAssignCreate, Handler: h.Assignments.Create},
		{Method: http.MethodGet, Path: "/assignments/:id", Roles: []models.UserRole{models.RoleInstructor, models.RoleTrainee}, Handler: h.Assignments.Get},
		{Method: http.MethodPut, Path: "/assignments/:id", Roles: instructorOnly, Audit: models.AuditActionAssignUpdate, Handler: h.Assignments.Update},
		{Method: http.MethodDelete, Path: "/assignments/:id", Roles: instructorOnly, Audit: models.AuditActionAssignDelete, Handler: h.Assignments.Delete},

		{Method: http.MethodGet, Path: "/dashboard/trainee", Roles: traineeOnly, Handler: h.Dashboard.Trainee},
		{Method: http.MethodGet, Path: "/dashboard/instructor", Roles: instructorOnly, Handler: h.Dashboard.Instructor},
		{Method: http.MethodGet, Path: "/dashboard/superadmin", Roles: superAdminOnly, Handler: h.Dashboard.SuperAdmin},

		{Method: http.MethodGet, Path: "/trainee/modules", Roles: traineeOnly, Handler: h.Assignments.MyModules},
		{Method: http.MethodPost, Path: "/trainee/complete/:id", Roles: traineeOnly, Handler: h.Assignments.Complete},

		{Method: http.MethodGet, Path: "/trainees", Roles: instructorOnly, Handler: h.Trainees.List},
		{Method: http.MethodDelete, Path: "/trainees/:id", Roles: instructorOnly, Handler: h.Trainees.Delete},
		{Method: http.MethodGet, Path: "/instructor/trainees/:id/progress", Roles: instructorOnly, Handler: h.Trainees.Progress},
		{Method: http.MethodGet, Path: "/instructor/trainees/:id/progress/export", Roles: instructorOnly, Handler: h.Trainees.ExportProgress},

		{Method: http.MethodPost, Path: "/messages/send", Roles: traineeOnly, Handler: h.Messages.Send},
		{Method: http.MethodGet, Path: "/messages/inbox", Roles: instructorOnly, Handler: h.Messages.Inbox},
		{Method: http.MethodPost, Path: "/messages/:id/reply", Roles: instructorOnly, Handler: h.Messages.Reply},
		{Method: http.MethodGet, Path: "/messages/my", Roles: traineeOnly, Handler: h.Messages.Mine},

		{Method: http.MethodGet, Path: "/admin/users", Roles: superAdminOnly, Handler: h.Users.List},
		{Method: http.MethodPost, Path: "/admin/users", Roles: superAdminOnly, Handler: h.Users.Create},
		{Method: http.MethodGet, Path: "/admin/users/:id", Roles: superAdminOnly, Handler: h.Users.Get},
		{Method: http.MethodPut, Path: "/admin/users/:id", Roles: superAdminOnly, Handler: h.Users.Update},
		{Method: http.MethodDelete, Path: "/admin/users/:id", Roles: superAdminOnly, Handler: h.Users.Delete},
	}
}

// Register mounts routes on group, wrapping protected ones in JWT and role checks.
func Register(group gin.IRouter, deps Deps, routes []Route) {
	auth := middleware.JWT(deps.Tokens)
	for _, rt := range routes {
		chain := make([]gin.HandlerFunc, 0, 4)
		if !rt.Public {
			chain = append(chain, auth, middleware.RequireRoles(rt.Roles...))
		}
		if rt.Audit != "" && deps.Audit != nil {
			chain = append(chain, middleware.Audit(deps.Audit, deps.Logger, rt.Audit, resourceOf(rt.Path)))
		}
		chain = append(chain, rt.Handler)
		group.Handle(rt.Method, rt.Path, chain...)
	}
}

func resourceOf(path string) string {
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			return path[1:i]
		}
	}
	return path[1:]
}
