package progress

import (
	"net/http"
	"strconv"
	"time"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	progressService *Service
}

// bookAndUser reads the :bookId route param and the authenticated user.
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

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	rp, err := h.progressService.GetProgress(ctx, userID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewDetail(rp)))
}

func (h *handler) session(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	session, err := h.progressService.GetSession(ctx, userID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, session))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := UpdateProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rp, err := h.progressService.UpdateProgress(ctx, UpdateProgressOptions{
		UserID:      userID,
		BookID:      bookID,
		CurrentPage: *params.CurrentPage,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewDetail(rp)))
}

func (h *handler) finish(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	rp, err := h.progressService.MarkFinished(ctx, userID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewDetail(rp)))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, userID, err := bookAndUser(c)
	if err != nil {
		return err
	}

	if err := h.progressService.DeleteProgress(ctx, userID, bookID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) currentlyReading(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := ListCurrentlyReadingQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rows, err := h.progressService.ListCurrentlyReading(ctx, ListProgressOptions{
		UserID: userID,
		Limit:  &params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newDetails(rows)))
}

func (h *handler) history(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := ListHistoryQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListProgressOptions{
		UserID: userID,
		Limit:  &params.Limit,
	}
	if params.DaysBack != nil {
		since := h.progressService.now().Add(-time.Duration(*params.DaysBack) * 24 * time.Hour)
		opts.Since = &since
	}

	rows, err := h.progressService.ListHistory(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newDetails(rows)))
}

func (h *handler) finished(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := ListFinishedQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rows, err := h.progressService.ListFinished(ctx, ListProgressOptions{
		UserID: userID,
		Limit:  &params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newDetails(rows)))
}

func (h *handler) stats(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	stats, err := h.progressService.RetrieveStats(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, stats))
}
