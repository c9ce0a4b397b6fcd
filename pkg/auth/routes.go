package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the auth routes and returns the middleware the
// rest of the API authenticates with.
func RegisterRoutes(e *echo.Echo, authService *Service) *Middleware {
	h := &handler{
		authService: authService,
	}
	mw := NewMiddleware(authService)

	auth := e.Group("/auth")
	auth.GET("/me", h.me, mw.Authenticate)

	return mw
}
