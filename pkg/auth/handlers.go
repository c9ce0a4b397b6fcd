package auth

import (
	"net/http"

	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authService *Service
}

// me returns the user the request's token belongs to.
func (h *handler) me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	user, err := h.authService.RetrieveUser(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}
