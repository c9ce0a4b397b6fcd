package reviews

import (
	"github.com/booklook/booklook/pkg/auth"
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroups registers the per-book review routes on the
// /books group and the single review routes on the /reviews group. Reads are
// public; writes need an authenticated user.
func RegisterRoutesWithGroups(bookGroup, reviewGroup *echo.Group, reviewService *Service, authMiddleware *auth.Middleware) {
	h := &handler{
		reviewService: reviewService,
	}

	bookGroup.GET("/:id/reviews", h.list)
	bookGroup.GET("/:id/reviews/distribution", h.distribution)
	bookGroup.POST("/:id/reviews", h.create, authMiddleware.Authenticate)
	bookGroup.GET("/:id/user-review", h.retrieveMine, authMiddleware.Authenticate)

	reviewGroup.GET("/:id", h.retrieve)
	reviewGroup.PATCH("/:id", h.update, authMiddleware.Authenticate)
	reviewGroup.DELETE("/:id", h.delete, authMiddleware.Authenticate)
}

// RegisterUserRoutesWithGroup registers the signed in reader's review routes
// on a group that already requires authentication.
func RegisterUserRoutesWithGroup(g *echo.Group, reviewService *Service) {
	h := &handler{
		reviewService: reviewService,
	}

	g.GET("/my-reviews", h.listMine)
}
