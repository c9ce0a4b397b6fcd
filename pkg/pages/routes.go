package pages

import (
	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/progress"
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers page routes on the /books group. The
// content route accepts anonymous readers and records progress for
// authenticated ones.
func RegisterRoutesWithGroup(g *echo.Group, pageService *Service, progressService *progress.Service, authMiddleware *auth.Middleware) {
	h := &handler{
		pageService:     pageService,
		progressService: progressService,
	}

	g.GET("/:id/content", h.content, authMiddleware.AuthenticateOptional)
	g.GET("/:id/pages", h.list)
	g.GET("/:id/pages/range", h.pageRange)
	g.GET("/:id/pages/:page", h.retrieve)
	g.GET("/:id/search", h.search)
}
