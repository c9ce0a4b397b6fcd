package pages

import (
	"net/http"
	"strconv"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/progress"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	pageService     *Service
	progressService *progress.Service
}

func bookIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("Book")
	}
	return id, nil
}

// content serves a page for the reader. When the request is authenticated
// the user's progress moves to this page as well.
func (h *handler) content(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	bookID, err := bookIDParam(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := PageQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	pageNumber := 1
	if params.Page != nil {
		pageNumber = *params.Page
	}

	page, err := h.pageService.GetPage(ctx, bookID, pageNumber)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		*PageResult
		Progress *progress.Detail `json:"progress,omitempty"`
	}{PageResult: page}

	if userID, ok := auth.GetUserIDFromContext(c); ok {
		rp, err := h.progressService.UpdateProgress(ctx, progress.UpdateProgressOptions{
			UserID:      userID,
			BookID:      bookID,
			CurrentPage: page.PageNumber,
		})
		if err != nil {
			log.Warn("failed to update reading progress", logger.Data{
				"book_id": bookID,
				"user_id": userID,
				"page":    page.PageNumber,
				"error":   err.Error(),
			})
		} else {
			resp.Progress = progress.NewDetail(rp)
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := bookIDParam(c)
	if err != nil {
		return err
	}

	pageNumber, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return errcodes.InvalidInput("Page number must be an integer.")
	}

	page, err := h.pageService.GetPage(ctx, bookID, pageNumber)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, page))
}

func (h *handler) pageRange(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := bookIDParam(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := PageRangeQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	pages, err := h.pageService.GetPageRange(ctx, bookID, params.Start, params.End)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, pages))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := bookIDParam(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := ListPagesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	pages, total, err := h.pageService.ListPages(ctx, ListPagesOptions{
		BookID: bookID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Pages []*PageSummary `json:"pages"`
		Total int            `json:"total"`
	}{pages, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := bookIDParam(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	hits, err := h.pageService.SearchInBook(ctx, bookID, params.Q, params.Limit)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Query   string       `json:"query"`
		Results []*SearchHit `json:"results"`
	}{params.Q, hits}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
