package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type CreateReviewOptions struct {
	UserID  int
	BookID  int
	Rating  int
	Title   *string
	Content *string
}

// UpdateReviewOptions changes the fields that are set and leaves the rest.
type UpdateReviewOptions struct {
	ReviewID int
	UserID   int
	Rating   *int
	Title    *string
	Content  *string
}

type ListReviewsOptions struct {
	BookID int
	Limit  *int
	Offset *int

	includeTotal bool
}

type ListUserReviewsOptions struct {
	UserID int
	Limit  *int
	Offset *int
}

// Distribution is the number of reviews a book has at each rating.
type Distribution struct {
	BookID        int            `json:"book_id"`
	AverageRating float64        `json:"average_rating"`
	ReviewCount   int            `json:"review_count"`
	Ratings       map[string]int `json:"ratings"`
}

type Service struct {
	db          *bun.DB
	bookService *books.Service
}

func NewService(db *bun.DB, bookService *books.Service) *Service {
	return &Service{db, bookService}
}

func validateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return errcodes.InvalidInput(fmt.Sprintf("Rating must be between %d and %d.", models.MinRating, models.MaxRating))
	}
	return nil
}

// lockBook takes the row lock on the book for the rest of the transaction,
// so aggregate refreshes for the same book run one after another.
func lockBook(ctx context.Context, tx bun.Tx, bookID int) error {
	q := tx.NewSelect().
		Model((*models.Book)(nil)).
		Column("b.id").
		Where("b.id = ?", bookID)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}

	var id int
	err := q.Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return errcodes.NotFound("Book")
	}
	return errors.WithStack(err)
}

// refreshAggregate recomputes a book's average rating and review count from
// its reviews.
func refreshAggregate(ctx context.Context, tx bun.Tx, bookID int) error {
	_, err := tx.NewUpdate().
		Model((*models.Book)(nil)).
		Set("average_rating = COALESCE((SELECT AVG(r.rating) FROM reviews AS r WHERE r.book_id = ?), 0)", bookID).
		Set("review_count = (SELECT COUNT(*) FROM reviews AS r WHERE r.book_id = ?)", bookID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", bookID).
		Exec(ctx)
	return errors.WithStack(err)
}

// CreateReview adds the user's review of a book. A user can review a book
// once.
func (svc *Service) CreateReview(ctx context.Context, opts CreateReviewOptions) (*models.Review, error) {
	if err := validateRating(opts.Rating); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	review := &models.Review{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    opts.UserID,
		BookID:    opts.BookID,
		Rating:    opts.Rating,
		Title:     opts.Title,
		Content:   opts.Content,
	}

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockBook(ctx, tx, opts.BookID); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(review).Returning("*").Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errcodes.Conflict("You have already reviewed this book.")
			}
			if database.IsForeignKeyViolation(err) {
				return errcodes.NotFound("User")
			}
			return errors.WithStack(err)
		}

		return refreshAggregate(ctx, tx, opts.BookID)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	svc.bookService.InvalidateBook(ctx, opts.BookID)

	logger.FromContext(ctx).Info("review created", logger.Data{
		"review_id": review.ID,
		"book_id":   review.BookID,
		"user_id":   review.UserID,
		"rating":    review.Rating,
	})

	return review, nil
}

// UpdateReview changes a review. Only its author may do so.
func (svc *Service) UpdateReview(ctx context.Context, opts UpdateReviewOptions) (*models.Review, error) {
	if opts.Rating != nil {
		if err := validateRating(*opts.Rating); err != nil {
			return nil, err
		}
	}

	review, err := svc.RetrieveReview(ctx, opts.ReviewID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if review.UserID != opts.UserID {
		return nil, errcodes.Forbidden("Editing another reader's review")
	}

	if opts.Rating == nil && opts.Title == nil && opts.Content == nil {
		return review, nil
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockBook(ctx, tx, review.BookID); err != nil {
			return err
		}

		q := tx.NewUpdate().
			Model(review).
			Set("updated_at = ?", time.Now().UTC())
		if opts.Rating != nil {
			q = q.Set("rating = ?", *opts.Rating)
		}
		if opts.Title != nil {
			q = q.Set("title = ?", *opts.Title)
		}
		if opts.Content != nil {
			q = q.Set("content = ?", *opts.Content)
		}

		res, err := q.WherePK().Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Review")
		}

		if opts.Rating != nil {
			return refreshAggregate(ctx, tx, review.BookID)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.Rating != nil {
		svc.bookService.InvalidateBook(ctx, review.BookID)
	}

	return svc.RetrieveReview(ctx, review.ID)
}

// DeleteReview removes a review. Only its author may do so.
func (svc *Service) DeleteReview(ctx context.Context, reviewID, userID int) error {
	review, err := svc.RetrieveReview(ctx, reviewID)
	if err != nil {
		return errors.WithStack(err)
	}
	if review.UserID != userID {
		return errcodes.Forbidden("Deleting another reader's review")
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockBook(ctx, tx, review.BookID); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Review)(nil)).
			Where("id = ?", reviewID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Review")
		}

		return refreshAggregate(ctx, tx, review.BookID)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	svc.bookService.InvalidateBook(ctx, review.BookID)

	logger.FromContext(ctx).Info("review deleted", logger.Data{
		"review_id": reviewID,
		"book_id":   review.BookID,
		"user_id":   userID,
	})

	return nil
}

func (svc *Service) RetrieveReview(ctx context.Context, reviewID int) (*models.Review, error) {
	review := &models.Review{}
	err := svc.db.NewSelect().
		Model(review).
		Relation("User").
		Where("r.id = ?", reviewID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Review")
		}
		return nil, errors.WithStack(err)
	}
	return review, nil
}

// RetrieveUserReview returns the review the user wrote for a book.
func (svc *Service) RetrieveUserReview(ctx context.Context, userID, bookID int) (*models.Review, error) {
	if _, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID}); err != nil {
		return nil, errors.WithStack(err)
	}

	review := &models.Review{}
	err := svc.db.NewSelect().
		Model(review).
		Relation("User").
		Where("r.user_id = ?", userID).
		Where("r.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Review")
		}
		return nil, errors.WithStack(err)
	}
	return review, nil
}

// ListUserReviewsWithTotal returns the reviews a user has written with the
// books they are about, newest first.
func (svc *Service) ListUserReviewsWithTotal(ctx context.Context, opts ListUserReviewsOptions) ([]*models.Review, int, error) {
	reviews := []*models.Review{}

	q := svc.db.NewSelect().
		Model(&reviews).
		Relation("Book").
		Where("r.user_id = ?", opts.UserID).
		Order("r.created_at DESC", "r.id DESC")
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return reviews, total, nil
}

func (svc *Service) ListBookReviews(ctx context.Context, opts ListReviewsOptions) ([]*models.Review, error) {
	r, _, err := svc.listBookReviewsWithTotal(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListBookReviewsWithTotal(ctx context.Context, opts ListReviewsOptions) ([]*models.Review, int, error) {
	opts.includeTotal = true
	return svc.listBookReviewsWithTotal(ctx, opts)
}

func (svc *Service) listBookReviewsWithTotal(ctx context.Context, opts ListReviewsOptions) ([]*models.Review, int, error) {
	if _, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &opts.BookID}); err != nil {
		return nil, 0, errors.WithStack(err)
	}

	reviews := []*models.Review{}
	var total int
	var err error

	q := svc.db.NewSelect().
		Model(&reviews).
		Relation("User").
		Where("r.book_id = ?", opts.BookID).
		Order("r.created_at DESC", "r.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return reviews, total, nil
}

// RatingDistribution counts a book's reviews at each rating. Every rating
// from MinRating to MaxRating is present, with zero where nobody chose it.
func (svc *Service) RatingDistribution(ctx context.Context, bookID int) (*Distribution, error) {
	if _, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID}); err != nil {
		return nil, errors.WithStack(err)
	}

	var rows []struct {
		Rating int `bun:"rating"`
		Count  int `bun:"count"`
	}
	err := svc.db.NewSelect().
		Model((*models.Review)(nil)).
		Column("r.rating").
		ColumnExpr("COUNT(*) AS count").
		Where("r.book_id = ?", bookID).
		Group("r.rating").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	dist := &Distribution{
		BookID:  bookID,
		Ratings: make(map[string]int, models.MaxRating),
	}
	for r := models.MinRating; r <= models.MaxRating; r++ {
		dist.Ratings[strconv.Itoa(r)] = 0
	}

	sum := 0
	for _, row := range rows {
		dist.Ratings[strconv.Itoa(row.Rating)] = row.Count
		dist.ReviewCount += row.Count
		sum += row.Rating * row.Count
	}
	if dist.ReviewCount > 0 {
		dist.AverageRating = math.Round(float64(sum)/float64(dist.ReviewCount)*100) / 100
	}

	return dist, nil
}
