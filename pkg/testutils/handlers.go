package testutils

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/booklook/booklook/pkg/auth"
	"github.com/booklook/booklook/pkg/identifiers"
	"github.com/booklook/booklook/pkg/models"
	"github.com/booklook/booklook/pkg/sortname"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type handler struct {
	db          *bun.DB
	authService *auth.Service
}

// createUserRequest is the request body for creating a test user.
type createUserRequest struct {
	Username string  `json:"username" validate:"required"`
	Email    *string `json:"email"`
}

// createUserResponse is the response body for creating a test user.
type createUserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// createUser creates a test user and signs a token for it.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	user := &models.User{
		CreatedAt: time.Now().UTC(),
		Username:  req.Username,
		Email:     req.Email,
	}
	_, err := h.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, createUserResponse{
		ID:       user.ID,
		Username: user.Username,
		Token:    token,
	}))
}

// deleteAllResponse is the response body for wiping test data.
type deleteAllResponse struct {
	Deleted int `json:"deleted"`
}

// deleteAllUsers deletes all users. Their progress and reviews go with them.
// DELETE /test/users.
func (h *handler) deleteAllUsers(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.db.NewDelete().
		Model((*models.User)(nil)).
		Where("1=1").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to delete users")
	}

	deleted, _ := result.RowsAffected()

	return errors.WithStack(c.JSON(http.StatusOK, deleteAllResponse{
		Deleted: int(deleted),
	}))
}

// createBookRequest is the request body for creating a test book. Each entry
// in Pages becomes one page, in order.
type createBookRequest struct {
	Title string   `json:"title" validate:"required"`
	ISBN  *string  `json:"isbn"`
	Pages []string `json:"pages"`
}

// createBook creates a book with pre-split content.
// POST /test/books.
func (h *handler) createBook(c echo.Context) error {
	ctx := c.Request().Context()

	var req createBookRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	var book *models.Book
	err := h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		book, err = InsertBook(ctx, tx, req.Title, req.ISBN, req.Pages)
		return err
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

// deleteAllBooks deletes all books along with their pages, progress and
// reviews.
// DELETE /test/books.
func (h *handler) deleteAllBooks(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.db.NewDelete().
		Model((*models.Book)(nil)).
		Where("1=1").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to delete books")
	}

	deleted, _ := result.RowsAffected()

	return errors.WithStack(c.JSON(http.StatusOK, deleteAllResponse{
		Deleted: int(deleted),
	}))
}

// InsertBook creates a book whose content is the given pages, numbered from 1.
func InsertBook(ctx context.Context, db bun.IDB, title string, isbn *string, pages []string) (*models.Book, error) {
	now := time.Now().UTC()
	book := &models.Book{
		CreatedAt: now,
		UpdatedAt: now,
		Title:     title,
		SortTitle: sortname.ForTitle(title),
	}
	if isbn != nil {
		canonical := *isbn
		if c, ok := identifiers.CanonicalISBN(canonical); ok {
			canonical = c
		}
		book.ISBN = &canonical
	}

	rows := make([]*models.BookPage, 0, len(pages))
	for i, content := range pages {
		words := len(strings.Fields(content))
		rows = append(rows, &models.BookPage{
			CreatedAt:  now,
			PageNumber: i + 1,
			Content:    content,
			WordCount:  words,
		})
		book.WordCount += words
	}
	book.TotalPages = len(rows)

	_, err := db.NewInsert().Model(book).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create book")
	}

	if len(rows) > 0 {
		for _, row := range rows {
			row.BookID = book.ID
		}
		_, err = db.NewInsert().Model(&rows).Exec(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create book pages")
		}
	}

	return book, nil
}
