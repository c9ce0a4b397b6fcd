package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/identifiers"
	"github.com/booklook/booklook/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID   *int
	ISBN *string
	// BypassCache reads the row from the database and leaves the cache
	// untouched. Use it when page totals must match the stored content.
	BypassCache bool
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

// ContentStats summarizes the loaded content of a book.
type ContentStats struct {
	BookID                  int     `json:"book_id"`
	HasContent              bool    `json:"has_content"`
	TotalPages              int     `json:"total_pages"`
	TotalWords              int     `json:"total_words"`
	AverageWordsPerPage     float64 `json:"average_words_per_page"`
	EstimatedReadingMinutes int     `json:"estimated_reading_minutes"`
	ReadingDifficulty       string  `json:"reading_difficulty"`
}

type Service struct {
	db       *bun.DB
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewService(db *bun.DB, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{db, c, cacheTTL}
}

// RetrieveBook looks a book up by id or isbn. Lookups by id alone are served
// from the cache when possible.
func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	cacheable := opts.ID != nil && opts.ISBN == nil && !opts.BypassCache
	if cacheable {
		book := &models.Book{}
		if ok, _ := svc.cache.Get(ctx, cache.BookKey(*opts.ID), book); ok {
			return book, nil
		}
	}

	book := &models.Book{}
	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.ISBN != nil {
		isbn, ok := identifiers.CanonicalISBN(*opts.ISBN)
		if !ok {
			return nil, errcodes.InvalidInput("ISBN is not valid.")
		}
		q = q.Where("b.isbn = ?", isbn)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if cacheable {
		_ = svc.cache.Set(ctx, cache.BookKey(book.ID), book, svc.cacheTTL)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.sort_title ASC", "b.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("LOWER(b.title) LIKE ? ESCAPE '\\'", "%"+EscapeLike(*opts.Search)+"%")
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// RetrieveContentStats reports page and word totals for a book.
func (svc *Service) RetrieveContentStats(ctx context.Context, bookID int) (*ContentStats, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats := &ContentStats{
		BookID:                  book.ID,
		HasContent:              book.HasContent(),
		TotalPages:              book.TotalPages,
		TotalWords:              book.WordCount,
		EstimatedReadingMinutes: book.EstimatedReadingMinutes(),
		ReadingDifficulty:       book.ReadingDifficulty(),
	}
	if book.TotalPages > 0 {
		stats.AverageWordsPerPage = roundTo(float64(book.WordCount)/float64(book.TotalPages), 1)
	}

	return stats, nil
}

// InvalidateBook drops everything cached for a book.
func (svc *Service) InvalidateBook(ctx context.Context, bookID int) {
	_ = cache.InvalidateBook(ctx, svc.cache, bookID)
}
