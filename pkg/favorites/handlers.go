package favorites

import (
	"net/http"
	"strconv"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	favoriteService *Service
}

func bookAndUser(c echo.Context) (int, int, error) {
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return 0, 0, errcodes.Unauthorized("Authentication required")
	}

	bookID, err := strconv.Atoi(c.Param("bookId"))
	if err != nil {
		return 0, 0, errcodes.NotFound("Book")
	}

	return bookID, userID, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	// Bind params.
	params := ListFavoritesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	favs, total, err := h.favoriteService.ListFavoritesWithTotal(ctx, ListFavoritesOptions{
		UserID: userID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Favorites []*models.UserFavorite `json:"favorites"`
		Total     int                    `json:"total"`
	}{favs, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) add(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	fav, err := h.favoriteService.AddFavorite(ctx, userID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, fav))
}

func (h *handler) remove(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	if err := h.favoriteService.RemoveFavorite(ctx, userID, bookID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) check(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	favorited, err := h.favoriteService.IsFavorited(ctx, userID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		BookID      int  `json:"book_id"`
		IsFavorited bool `json:"is_favorited"`
	}{bookID, favorited}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
