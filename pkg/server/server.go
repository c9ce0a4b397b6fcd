package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/binder"
	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/favorites"
	"github.com/booklook/booklook/pkg/pages"
	"github.com/booklook/booklook/pkg/progress"
	"github.com/booklook/booklook/pkg/reviews"
	"github.com/booklook/booklook/pkg/testutils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// EnvironmentTest enables the /test routes used by end-to-end suites.
const EnvironmentTest = "test"

func New(cfg *config.Config, db *bun.DB, c cache.Cache) (*http.Server, error) {
	e, err := newEcho(cfg, db, c)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, c cache.Cache) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	config.RegisterRoutes(e, cfg)

	authService := auth.NewService(db, cfg.JWTSecret)
	authMiddleware := auth.RegisterRoutes(e, authService)

	bookService := books.NewService(db, c, cfg.CacheTTL)
	progressService := progress.NewService(db, bookService)
	pageService := pages.NewService(db, c, bookService, cfg)
	reviewService := reviews.NewService(db, bookService)
	favoriteService := favorites.NewService(db, bookService)

	// Books and their content are public. The content route picks up the
	// reader when a token is present.
	booksGroup := e.Group("/books")
	books.RegisterRoutesWithGroup(booksGroup, bookService)
	pages.RegisterRoutesWithGroup(booksGroup, pageService, progressService, authMiddleware)

	reviewsGroup := e.Group("/reviews")
	reviews.RegisterRoutesWithGroups(booksGroup, reviewsGroup, reviewService, authMiddleware)

	userGroup := e.Group("/user")
	userGroup.Use(authMiddleware.Authenticate)
	progress.RegisterRoutesWithGroup(userGroup, progressService)
	favorites.RegisterRoutesWithGroup(userGroup, favoriteService)
	reviews.RegisterUserRoutesWithGroup(userGroup, reviewService)

	if cfg.Environment == EnvironmentTest {
		testutils.RegisterRoutes(e, db, authService)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
