// Package testutils provides test-only API endpoints and fixtures.
// The routes are only registered when ENVIRONMENT=test.
package testutils

import (
	"github.com/booklook/booklook/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers test-only routes.
// These endpoints should ONLY be registered in test environments.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authService *auth.Service) {
	h := &handler{db: db, authService: authService}

	test := e.Group("/test")
	test.POST("/users", h.createUser)
	test.DELETE("/users", h.deleteAllUsers)
	test.POST("/books", h.createBook)
	test.DELETE("/books", h.deleteAllBooks)
}
