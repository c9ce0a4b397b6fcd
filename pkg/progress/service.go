package progress

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Defaults for the listing endpoints.
const (
	DefaultCurrentlyReadingLimit = 10
	DefaultHistoryLimit          = 20
	DefaultFinishedLimit         = 20

	recentActivityWindow = 30 * 24 * time.Hour
)

type UpdateProgressOptions struct {
	UserID      int
	BookID      int
	CurrentPage int
}

type ListProgressOptions struct {
	UserID int
	Limit  *int
	// Since restricts the listing to rows read at or after the given time.
	Since *time.Time
}

// Stats summarizes a user's reading activity.
type Stats struct {
	TotalBooksStarted   int     `json:"total_books_started" bun:"total_books_started"`
	BooksFinished       int     `json:"books_finished" bun:"books_finished"`
	CurrentlyReading    int     `json:"currently_reading" bun:"currently_reading"`
	AverageProgress     float64 `json:"average_progress" bun:"average_progress"`
	RecentActivityCount int     `json:"recent_activity_count" bun:"recent_activity_count"`
	CompletionRate      float64 `json:"completion_rate" bun:"-"`
}

// Session is what a reader needs to pick a book back up.
type Session struct {
	BookID                    int       `json:"book_id"`
	BookTitle                 string    `json:"book_title"`
	CurrentPage               int       `json:"current_page"`
	TotalPages                int       `json:"total_pages"`
	ProgressPercentage        float64   `json:"progress_percentage"`
	Status                    string    `json:"status"`
	PagesRemaining            int       `json:"pages_remaining"`
	CurrentWordPosition       int       `json:"current_word_position"`
	WordsRemaining            int       `json:"words_remaining"`
	EstimatedMinutesRemaining int       `json:"estimated_minutes_remaining"`
	LastReadAt                time.Time `json:"last_read_at"`
}

// pageWords splits a book's words around the reader's current page.
type pageWords struct {
	Before int `bun:"words_before"`
	After  int `bun:"words_after"`
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

// Percentage returns current/total as a percentage rounded to two places and
// clamped to [0, 100].
func Percentage(current, total int) float64 {
	if total <= 0 || current <= 0 {
		return 0
	}
	pct := math.Round(float64(current)/float64(total)*100*100) / 100
	return math.Min(pct, 100)
}

// ClampPage moves page into [1, total]. Out of range positions come from
// clients racing each other, so they are corrected rather than rejected.
func ClampPage(page, total int) int {
	return max(1, min(page, total))
}

// UpdateProgress records the user's position in a book. The row is written
// with a single upsert, so concurrent updates resolve to the last write.
func (svc *Service) UpdateProgress(ctx context.Context, opts UpdateProgressOptions) (*models.ReadingProgress, error) {
	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &opts.BookID, BypassCache: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	total := book.TotalPages
	if total <= 0 {
		return nil, errcodes.NoContent()
	}

	current := ClampPage(opts.CurrentPage, total)
	now := svc.now()
	rp := &models.ReadingProgress{
		UserID:             opts.UserID,
		BookID:             opts.BookID,
		CurrentPage:        current,
		TotalPages:         total,
		ProgressPercentage: Percentage(current, total),
		LastReadAt:         now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	_, err = svc.db.NewInsert().
		Model(rp).
		On("CONFLICT (user_id, book_id) DO UPDATE").
		Set("current_page = EXCLUDED.current_page").
		Set("total_pages = EXCLUDED.total_pages").
		Set("progress_percentage = EXCLUDED.progress_percentage").
		Set("last_read_at = EXCLUDED.last_read_at").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	rp.Book = book
	return rp, nil
}

// MarkFinished moves the user to the last page of the book.
func (svc *Service) MarkFinished(ctx context.Context, userID, bookID int) (*models.ReadingProgress, error) {
	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID, BypassCache: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.UpdateProgress(ctx, UpdateProgressOptions{
		UserID:      userID,
		BookID:      bookID,
		CurrentPage: book.TotalPages,
	})
}

// GetProgress returns the user's progress in a book. A user who has never
// opened the book gets a not-started record instead of an error.
func (svc *Service) GetProgress(ctx context.Context, userID, bookID int) (*models.ReadingProgress, error) {
	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID, BypassCache: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rp, err := svc.retrieveProgress(ctx, userID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.ReadingProgress{
			UserID:     userID,
			BookID:     bookID,
			TotalPages: book.TotalPages,
			Book:       book,
		}, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rp.Book = book
	return rp, nil
}

// GetSession describes where the user left off in a book. Word positions
// come from the stored pages, so they follow the book's current content.
func (svc *Service) GetSession(ctx context.Context, userID, bookID int) (*Session, error) {
	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID, BypassCache: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rp, err := svc.retrieveProgress(ctx, userID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Reading session")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	words := &pageWords{}
	err = svc.db.NewSelect().
		Model((*models.BookPage)(nil)).
		ColumnExpr("COALESCE(SUM(CASE WHEN bp.page_number < ? THEN bp.word_count ELSE 0 END), 0) AS words_before", rp.CurrentPage).
		ColumnExpr("COALESCE(SUM(CASE WHEN bp.page_number > ? THEN bp.word_count ELSE 0 END), 0) AS words_after", rp.CurrentPage).
		Where("bp.book_id = ?", bookID).
		Scan(ctx, words)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Session{
		BookID:                    bookID,
		BookTitle:                 book.Title,
		CurrentPage:               rp.CurrentPage,
		TotalPages:                rp.TotalPages,
		ProgressPercentage:        rp.ProgressPercentage,
		Status:                    rp.Status(),
		PagesRemaining:            rp.PagesRemaining(),
		CurrentWordPosition:       words.Before,
		WordsRemaining:            words.After,
		EstimatedMinutesRemaining: words.After / models.ReadingWordsPerMinute,
		LastReadAt:                rp.LastReadAt,
	}, nil
}

func (svc *Service) retrieveProgress(ctx context.Context, userID, bookID int) (*models.ReadingProgress, error) {
	rp := &models.ReadingProgress{}
	err := svc.db.NewSelect().
		Model(rp).
		Where("rp.user_id = ?", userID).
		Where("rp.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rp, nil
}

// ListCurrentlyReading returns books the user has started but not finished,
// most recently read first.
func (svc *Service) ListCurrentlyReading(ctx context.Context, opts ListProgressOptions) ([]*models.ReadingProgress, error) {
	return svc.list(ctx, opts, DefaultCurrentlyReadingLimit, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rp.progress_percentage > 0").Where("rp.progress_percentage < 100")
	})
}

// ListHistory returns every book the user has opened, most recently read
// first, regardless of completion.
func (svc *Service) ListHistory(ctx context.Context, opts ListProgressOptions) ([]*models.ReadingProgress, error) {
	return svc.list(ctx, opts, DefaultHistoryLimit, nil)
}

func (svc *Service) ListFinished(ctx context.Context, opts ListProgressOptions) ([]*models.ReadingProgress, error) {
	return svc.list(ctx, opts, DefaultFinishedLimit, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rp.progress_percentage >= 100")
	})
}

func (svc *Service) list(ctx context.Context, opts ListProgressOptions, defaultLimit int, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*models.ReadingProgress, error) {
	rows := []*models.ReadingProgress{}

	limit := defaultLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}

	q := svc.db.NewSelect().
		Model(&rows).
		Relation("Book").
		Where("rp.user_id = ?", opts.UserID).
		Order("rp.last_read_at DESC", "rp.book_id ASC").
		Limit(limit)

	if opts.Since != nil {
		q = q.Where("rp.last_read_at >= ?", opts.Since.UTC())
	}
	if filter != nil {
		q = filter(q)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return rows, nil
}

// DeleteProgress resets the user's progress in a book.
func (svc *Service) DeleteProgress(ctx context.Context, userID, bookID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.ReadingProgress)(nil)).
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
		return errcodes.NotFound("Reading progress")
	}
	return nil
}

func (svc *Service) RetrieveStats(ctx context.Context, userID int) (*Stats, error) {
	stats := &Stats{}
	err := svc.db.NewSelect().
		Model((*models.ReadingProgress)(nil)).
		ColumnExpr("COUNT(*) AS total_books_started").
		ColumnExpr("COALESCE(SUM(CASE WHEN rp.progress_percentage >= 100 THEN 1 ELSE 0 END), 0) AS books_finished").
		ColumnExpr("COALESCE(SUM(CASE WHEN rp.progress_percentage > 0 AND rp.progress_percentage < 100 THEN 1 ELSE 0 END), 0) AS currently_reading").
		ColumnExpr("CAST(COALESCE(AVG(rp.progress_percentage), 0) AS DOUBLE PRECISION) AS average_progress").
		ColumnExpr("COALESCE(SUM(CASE WHEN rp.last_read_at >= ? THEN 1 ELSE 0 END), 0) AS recent_activity_count", svc.now().Add(-recentActivityWindow)).
		Where("rp.user_id = ?", userID).
		Scan(ctx, stats)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats.AverageProgress = math.Round(stats.AverageProgress*100) / 100
	if stats.TotalBooksStarted > 0 {
		stats.CompletionRate = math.Round(float64(stats.BooksFinished)/float64(stats.TotalBooksStarted)*100*100) / 100
	}
	return stats, nil
}
