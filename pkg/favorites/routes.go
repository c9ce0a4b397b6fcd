package favorites

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers favorites routes on a group that already
// requires authentication.
func RegisterRoutesWithGroup(g *echo.Group, favoriteService *Service) {
	h := &handler{
		favoriteService: favoriteService,
	}

	g.GET("/favorites", h.list)
	g.POST("/favorites/:bookId", h.add)
	g.DELETE("/favorites/:bookId", h.remove)
	g.GET("/favorites/:bookId/check", h.check)
}
