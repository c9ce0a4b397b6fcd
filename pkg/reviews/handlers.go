package reviews

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
	reviewService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := ListReviewsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reviews, total, err := h.reviewService.ListBookReviewsWithTotal(ctx, ListReviewsOptions{
		BookID: bookID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Reviews []*models.Review `json:"reviews"`
		Total   int              `json:"total"`
	}{reviews, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) distribution(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	dist, err := h.reviewService.RatingDistribution(ctx, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, dist))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := CreateReviewPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	review, err := h.reviewService.CreateReview(ctx, CreateReviewOptions{
		UserID:  userID,
		BookID:  bookID,
		Rating:  *params.Rating,
		Title:   params.Title,
		Content: params.Content,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, review))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Review")
	}

	review, err := h.reviewService.RetrieveReview(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, review))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Review")
	}

	// Bind params.
	params := UpdateReviewPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	review, err := h.reviewService.UpdateReview(ctx, UpdateReviewOptions{
		ReviewID: id,
		UserID:   userID,
		Rating:   params.Rating,
		Title:    params.Title,
		Content:  params.Content,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, review))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Review")
	}

	if err := h.reviewService.DeleteReview(ctx, id, userID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) retrieveMine(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	review, err := h.reviewService.RetrieveUserReview(ctx, userID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, review))
}

func (h *handler) listMine(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	// Bind params.
	params := ListUserReviewsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reviews, total, err := h.reviewService.ListUserReviewsWithTotal(ctx, ListUserReviewsOptions{
		UserID: userID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Reviews []*models.Review `json:"reviews"`
		Total   int              `json:"total"`
	}{reviews, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
