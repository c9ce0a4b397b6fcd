package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`CREATE INDEX ix_reading_progress_user_id_last_read_at ON reading_progress (user_id, last_read_at)`,
			`CREATE INDEX ix_reviews_book_id_created_at ON reviews (book_id, created_at)`,
			`CREATE INDEX ix_books_sort_title ON books (sort_title)`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`DROP INDEX IF EXISTS ix_books_sort_title`,
			`DROP INDEX IF EXISTS ix_reviews_book_id_created_at`,
			`DROP INDEX IF EXISTS ix_reading_progress_user_id_last_read_at`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
