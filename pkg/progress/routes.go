package progress

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers reading progress routes on a group that
// already requires authentication.
func RegisterRoutesWithGroup(g *echo.Group, progressService *Service) {
	h := &handler{
		progressService: progressService,
	}

	g.GET("/reading-progress/:bookId", h.retrieve)
	g.PUT("/reading-progress/:bookId", h.update)
	g.DELETE("/reading-progress/:bookId", h.delete)
	g.POST("/reading-progress/:bookId/finish", h.finish)
	g.GET("/reading-progress/:bookId/session", h.session)

	g.GET("/reading-progress-currently-reading", h.currentlyReading)
	g.GET("/reading-progress-history", h.history)
	g.GET("/reading-progress-finished", h.finished)
	g.GET("/reading-stats", h.stats)
}
