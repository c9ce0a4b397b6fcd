package favorites

import (
	"context"
	"database/sql"
	"time"

	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const DefaultListLimit = 20

type ListFavoritesOptions struct {
	UserID int
	Limit  *int
	Offset *int
}

type Service struct {
	db          *bun.DB
	bookService *books.Service
	now         func() time.Time
}

func NewService(db *bun.DB, bookService *books.Service) *Service {
	return &Service{
		db:          db,
		bookService: bookService,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AddFavorite puts a book on the user's favorites. Adding a book that is
// already there keeps the original row.
func (svc *Service) AddFavorite(ctx context.Context, userID, bookID int) (*models.UserFavorite, error) {
	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	fav := &models.UserFavorite{
		UserID:    userID,
		BookID:    bookID,
		CreatedAt: svc.now(),
	}
	res, err := svc.db.NewInsert().
		Model(fav).
		On("CONFLICT (user_id, book_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		logger.FromContext(ctx).Info("favorite added", logger.Data{
			"user_id": userID,
			"book_id": bookID,
		})
	}

	fav, err = svc.retrieveFavorite(ctx, userID, bookID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	fav.Book = book
	return fav, nil
}

// RemoveFavorite takes a book off the user's favorites.
func (svc *Service) RemoveFavorite(ctx context.Context, userID, bookID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.UserFavorite)(nil)).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound("Favorite")
	}
	return nil
}

// IsFavorited reports whether the book is on the user's favorites. Unknown
// books are simply not favorited.
func (svc *Service) IsFavorited(ctx context.Context, userID, bookID int) (bool, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.UserFavorite)(nil)).
		Where("uf.user_id = ?", userID).
		Where("uf.book_id = ?", bookID).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

// ListFavoritesWithTotal returns the user's favorites, most recently added
// first, along with how many there are in total.
func (svc *Service) ListFavoritesWithTotal(ctx context.Context, opts ListFavoritesOptions) ([]*models.UserFavorite, int, error) {
	favs := []*models.UserFavorite{}

	limit := DefaultListLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}

	q := svc.db.NewSelect().
		Model(&favs).
		Relation("Book").
		Where("uf.user_id = ?", opts.UserID).
		Order("uf.created_at DESC", "uf.book_id ASC").
		Limit(limit)
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return favs, total, nil
}

func (svc *Service) retrieveFavorite(ctx context.Context, userID, bookID int) (*models.UserFavorite, error) {
	fav := &models.UserFavorite{}
	err := svc.db.NewSelect().
		Model(fav).
		Where("uf.user_id = ?", userID).
		Where("uf.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Favorite")
		}
		return nil, errors.WithStack(err)
	}
	return fav, nil
}
