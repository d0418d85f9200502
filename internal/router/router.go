// Package router maps the HTTP surface onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/handler"
	"github.com/slms/leave-service/internal/middleware"
	"github.com/slms/leave-service/internal/model"
)

// Handlers groups everything the routes need.  Limiter and Cache may be
// pass-through.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Departments *handler.DepartmentHandler
	Leaves      *handler.LeaveHandler
	Health      echo.HandlerFunc
	Guard       *middleware.Guard
	Limiter     echo.MiddlewareFunc
	Cache       *middleware.ResponseCache
}

const (
	admin = model.RoleAdmin
	hod   = model.RoleHOD
	staff = model.RoleStaff
)

// Register installs every route on e.
func Register(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)
	registerAuth(e, h)
	registerUsers(e, h)
	registerDepartments(e, h)
	registerLeaves(e, h)
}

// registerAuth puts the unauthenticated endpoints behind the rate limiter.
func registerAuth(e *echo.Echo, h Handlers) {
	limiter := h.Limiter
	if limiter == nil {
		limiter = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	g := e.Group("/auth")
	g.POST("/register", h.Auth.Register, limiter)
	g.POST("/login", h.Auth.Login, limiter)
	g.POST("/verify-email", h.Auth.VerifyEmail, limiter)
	g.POST("/reset", h.Auth.Reset, limiter)
	g.POST("/logout", h.Auth.Logout, h.Guard.Require())
	g.PUT("/me", h.Auth.UpdateMe, h.Guard.Require())
}

func registerUsers(e *echo.Echo, h Handlers) {
	g := e.Group("/users")
	anyone := h.Guard.Require()
	managers := h.Guard.Require(admin, hod)
	g.GET("", h.Users.List, managers)
	g.POST("", h.Users.Create, managers)
	g.GET("/:id", h.Users.Get, anyone)
	g.PUT("/:id", h.Users.Update, anyone)
	g.POST("/:id/activate", h.Users.Activate, managers)
	g.POST("/:id/deactivate", h.Users.Deactivate, managers)
	g.DELETE("/:id", h.Users.Delete, managers)
}

// registerDepartments serves reads from the response cache; ADMIN writes
// purge it.
func registerDepartments(e *echo.Echo, h Handlers) {
	g := e.Group("/departments")
	g.GET("", h.Departments.List, h.Cache.Middleware())
	g.GET("/:id", h.Departments.Get, h.Cache.Middleware())

	write := []echo.MiddlewareFunc{h.Guard.Require(admin), h.Cache.Purge()}
	g.POST("", h.Departments.Create, write...)
	g.PUT("/:id", h.Departments.Update, write...)
	g.DELETE("/:id", h.Departments.Delete, write...)
}

func registerLeaves(e *echo.Echo, h Handlers) {
	g := e.Group("/leaves")
	readers := h.Guard.Require(hod, staff)
	g.GET("", h.Leaves.List, readers)
	g.GET("/:id", h.Leaves.Get, readers)
	g.POST("", h.Leaves.Create, h.Guard.Require(staff))
	g.PUT("/:id", h.Leaves.Update, h.Guard.Require(staff))
	g.DELETE("/:id", h.Leaves.Delete, h.Guard.Require(staff))
	g.POST("/:id/approve", h.Leaves.Approve, h.Guard.Require(hod))
	g.POST("/:id/reject", h.Leaves.Reject, h.Guard.Require(hod))
}
