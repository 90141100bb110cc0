package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds every request-scoped database call.
const dbTimeout = 5 * time.Second

// getUserID extracts the authenticated user id attached to the context by
// the JWT middleware.  Handlers behind the middleware can rely on it being
// present; a miss means the route was wired without the gate.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("no authenticated user in context")
}

// Health reports liveness for load balancers and monitoring.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Root gives monitoring and humans a cheap signal that the API is up.
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Todo App API",
		"status":  "running",
	})
}
