package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/handler"    // import the handlers that implement business logic
	"github.com/todoapp/todo-api/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the root banner and the health check used by load
// balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Signup, signin and
// signout are public: signout inspects the presented token itself so that a
// client holding an expired token can still terminate its session cleanly.
// The /me endpoint sits behind the JWT gate like every other protected
// route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, denylist middleware.TokenDenylist, log *zap.Logger) {
	g := e.Group("/api/auth")
	g.POST("/signup", a.Signup)
	g.POST("/signin", a.Signin)
	g.POST("/signout", a.Signout)

	protected := e.Group("/api/auth")
	protected.Use(middleware.JWTAuth(jwtSecret, denylist, log))
	protected.GET("/me", a.Me)
}

// RegisterTasks mounts the task CRUD behind the JWT gate.  The middleware
// is a hard precondition: no task handler runs without a resolved identity
// in the request context.
func RegisterTasks(e *echo.Echo, t *handler.TaskHandler, jwtSecret string, denylist middleware.TokenDenylist, log *zap.Logger) {
	g := e.Group("/api/tasks")
	g.Use(middleware.JWTAuth(jwtSecret, denylist, log))
	g.POST("", t.CreateTask)
	g.GET("", t.ListTasks)
	g.PUT("/:id", t.UpdateTask)
	g.PATCH("/:id/complete", t.ToggleComplete)
	g.DELETE("/:id", t.DeleteTask)
}
