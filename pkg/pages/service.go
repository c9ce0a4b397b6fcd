package pages

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const (
	DefaultSearchLimit = 10
	insertBatchSize    = 500
)

// PageResult is a page of content with the navigation around it.
type PageResult struct {
	BookID       int    `json:"book_id"`
	PageNumber   int    `json:"page_number"`
	Content      string `json:"content"`
	WordCount    int    `json:"word_count"`
	TotalPages   int    `json:"total_pages"`
	HasPrevious  bool   `json:"has_previous"`
	HasNext      bool   `json:"has_next"`
	PreviousPage *int   `json:"previous_page"`
	NextPage     *int   `json:"next_page"`
}

// SearchHit is a page that matched an in-book search.
type SearchHit struct {
	PageNumber int    `json:"page_number"`
	Snippet    string `json:"snippet"`
	Matches    int    `json:"matches"`
}

// PageSummary describes a page without its full content.
type PageSummary struct {
	PageNumber     int    `json:"page_number"`
	WordCount      int    `json:"word_count"`
	ContentPreview string `json:"content_preview"`
}

// PageInput is one page of pre-split content.
type PageInput struct {
	PageNumber int
	Content    string
}

type ListPagesOptions struct {
	BookID int
	Limit  *int
	Offset *int
}

// ImportResult reports the totals written by an import.
type ImportResult struct {
	BookID     int `json:"book_id"`
	TotalPages int `json:"total_pages"`
	WordCount  int `json:"word_count"`
}

type Service struct {
	db           *bun.DB
	cache        cache.Cache
	cacheTTL     time.Duration
	bookService  *books.Service
	maxRangeSpan int
	wordsPerPage int
}

func NewService(db *bun.DB, c cache.Cache, bookService *books.Service, cfg *config.Config) *Service {
	return &Service{
		db:           db,
		cache:        c,
		cacheTTL:     cfg.CacheTTL,
		bookService:  bookService,
		maxRangeSpan: cfg.MaxPageRangeSpan,
		wordsPerPage: cfg.WordsPerPage,
	}
}

func newPageResult(page *models.BookPage, totalPages int) *PageResult {
	result := &PageResult{
		BookID:      page.BookID,
		PageNumber:  page.PageNumber,
		Content:     page.Content,
		WordCount:   page.WordCount,
		TotalPages:  totalPages,
		HasPrevious: page.PageNumber > 1,
		HasNext:     page.PageNumber < totalPages,
	}
	if result.HasPrevious {
		prev := page.PageNumber - 1
		result.PreviousPage = &prev
	}
	if result.HasNext {
		next := page.PageNumber + 1
		result.NextPage = &next
	}
	return result
}

// GetPage returns a single page of a book. Pages are read through the cache,
// keyed by the book's content version so a replaced page is never served.
func (svc *Service) GetPage(ctx context.Context, bookID, pageNumber int) (*PageResult, error) {
	if pageNumber < 1 {
		return nil, errcodes.InvalidInput("Page number must be at least 1.")
	}

	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID, BypassCache: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	page := &models.BookPage{}
	key := cache.PageKey(bookID, book.ContentVersion, pageNumber)
	if ok, _ := svc.cache.Get(ctx, key, page); ok {
		return newPageResult(page, book.TotalPages), nil
	}

	err = svc.db.NewSelect().
		Model(page).
		Where("bp.book_id = ?", bookID).
		Where("bp.page_number = ?", pageNumber).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if book.TotalPages == 0 {
			return nil, errcodes.NoContent()
		}
		return nil, errcodes.PageNotFound(pageNumber, book.TotalPages)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	_ = svc.cache.Set(ctx, key, page, svc.cacheTTL)

	return newPageResult(page, book.TotalPages), nil
}

// GetPageRange returns the pages from start to end inclusive, in order.
// Pages that don't exist are left out.
func (svc *Service) GetPageRange(ctx context.Context, bookID, start, end int) ([]*PageResult, error) {
	if start < 1 {
		return nil, errcodes.InvalidInput("Start page must be at least 1.")
	}
	if end < start {
		return nil, errcodes.InvalidInput("End page must not be before the start page.")
	}
	if end-start > svc.maxRangeSpan {
		return nil, errcodes.InvalidInput(fmt.Sprintf("A page range can span at most %d pages.", svc.maxRangeSpan))
	}

	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID, BypassCache: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows := []*models.BookPage{}
	err = svc.db.NewSelect().
		Model(&rows).
		Where("bp.book_id = ?", bookID).
		Where("bp.page_number BETWEEN ? AND ?", start, end).
		Order("bp.page_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	results := make([]*PageResult, len(rows))
	for i, row := range rows {
		results[i] = newPageResult(row, book.TotalPages)
	}
	return results, nil
}

// SearchInBook finds pages containing query, ignoring case. Hits are ranked
// by how often the query appears on the page, then by page number.
func (svc *Service) SearchInBook(ctx context.Context, bookID int, query string, limit int) ([]*SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errcodes.InvalidInput("Search query can't be blank.")
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}

	_, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows := []*models.BookPage{}
	err = svc.db.NewSelect().
		Model(&rows).
		Where("bp.book_id = ?", bookID).
		Where("LOWER(bp.content) LIKE ? ESCAPE '\\'", "%"+books.EscapeLike(query)+"%").
		Order("bp.page_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	q := []rune(query)
	hits := []*SearchHit{}
	for _, row := range rows {
		content := []rune(row.Content)
		first, count := matches(content, q)
		if count == 0 {
			continue
		}
		hits = append(hits, &SearchHit{
			PageNumber: row.PageNumber,
			Snippet:    snippet(content, first, len(q)),
			Matches:    count,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Matches != hits[j].Matches {
			return hits[i].Matches > hits[j].Matches
		}
		return hits[i].PageNumber < hits[j].PageNumber
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ListPages lists a book's pages with a short preview instead of the full
// content.
func (svc *Service) ListPages(ctx context.Context, opts ListPagesOptions) ([]*PageSummary, int, error) {
	_, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &opts.BookID})
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	rows := []*models.BookPage{}
	q := svc.db.NewSelect().
		Model(&rows).
		Where("bp.book_id = ?", opts.BookID).
		Order("bp.page_number ASC")

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

	summaries := make([]*PageSummary, len(rows))
	for i, row := range rows {
		summaries[i] = &PageSummary{
			PageNumber:     row.PageNumber,
			WordCount:      row.WordCount,
			ContentPreview: preview(row.Content),
		}
	}
	return summaries, total, nil
}

// ImportContent splits text into pages and replaces the book's content with
// them. A wordsPerPage below 1 uses the configured default.
func (svc *Service) ImportContent(ctx context.Context, bookID int, text string, wordsPerPage int) (*ImportResult, error) {
	if wordsPerPage < 1 {
		wordsPerPage = svc.wordsPerPage
	}

	split := Split(text, wordsPerPage)
	if len(split) == 0 {
		return nil, errcodes.InvalidInput("Content is empty.")
	}

	inputs := make([]PageInput, len(split))
	for i, content := range split {
		inputs[i] = PageInput{PageNumber: i + 1, Content: content}
	}

	return svc.ReplacePages(ctx, bookID, inputs)
}

// ReplacePages swaps a book's pages for the given ones in one transaction
// and updates the book's page and word totals. Page numbers must run from 1
// without gaps; a repeated page number is a conflict.
func (svc *Service) ReplacePages(ctx context.Context, bookID int, inputs []PageInput) (*ImportResult, error) {
	seen := make(map[int]bool, len(inputs))
	for _, in := range inputs {
		if in.PageNumber < 1 {
			return nil, errcodes.InvalidInput("Page number must be at least 1.")
		}
		if seen[in.PageNumber] {
			return nil, errcodes.Conflict(fmt.Sprintf("Page %d appears more than once.", in.PageNumber))
		}
		seen[in.PageNumber] = true
	}
	for n := 1; n <= len(inputs); n++ {
		if !seen[n] {
			return nil, errcodes.InvalidInput(fmt.Sprintf("Page %d is missing. Page numbers must be contiguous from 1.", n))
		}
	}

	log := logger.FromContext(ctx)
	now := time.Now().UTC()
	result := &ImportResult{BookID: bookID, TotalPages: len(inputs)}

	rows := make([]*models.BookPage, len(inputs))
	for i, in := range inputs {
		words := CountWords(in.Content)
		rows[i] = &models.BookPage{
			CreatedAt:  now,
			BookID:     bookID,
			PageNumber: in.PageNumber,
			Content:    in.Content,
			WordCount:  words,
		}
		result.WordCount += words
	}

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("total_pages = ?", result.TotalPages).
			Set("word_count = ?", result.WordCount).
			Set("content_version = content_version + 1").
			Set("updated_at = ?", now).
			Where("id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Book")
		}

		_, err = tx.NewDelete().
			Model((*models.BookPage)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for start := 0; start < len(rows); start += insertBatchSize {
			batch := rows[start:min(start+insertBatchSize, len(rows))]
			_, err = tx.NewInsert().Model(&batch).Exec(ctx)
			if err != nil {
				if database.IsUniqueViolation(err) {
					return errcodes.Conflict("Page numbers collide with existing pages.")
				}
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	svc.bookService.InvalidateBook(ctx, bookID)

	log.Info("replaced book content", logger.Data{
		"book_id":     bookID,
		"total_pages": result.TotalPages,
		"word_count":  result.WordCount,
	})

	return result, nil
}
