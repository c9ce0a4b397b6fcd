package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		pk := serialPrimaryKey(db)
		err := execAll(ctx, db,
			`
			CREATE TABLE users (
				id `+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				username TEXT NOT NULL,
				email TEXT
			)
`,
			`CREATE UNIQUE INDEX ux_users_username ON users (username)`,
			`
			CREATE TABLE books (
				id `+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				sort_title TEXT NOT NULL DEFAULT '',
				isbn TEXT,
				description TEXT,
				total_pages INTEGER NOT NULL DEFAULT 0,
				word_count INTEGER NOT NULL DEFAULT 0,
				average_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
				review_count INTEGER NOT NULL DEFAULT 0
			)
`,
			`CREATE UNIQUE INDEX ux_books_isbn ON books (isbn)`,
			`
			CREATE TABLE book_pages (
				id `+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id INTEGER REFERENCES books (id) ON DELETE CASCADE NOT NULL,
				page_number INTEGER NOT NULL CHECK (page_number >= 1),
				content TEXT NOT NULL,
				word_count INTEGER NOT NULL DEFAULT 0
			)
`,
			`CREATE UNIQUE INDEX ux_book_pages_book_id_page_number ON book_pages (book_id, page_number)`,
			`
			CREATE TABLE reading_progress (
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				book_id INTEGER REFERENCES books (id) ON DELETE CASCADE NOT NULL,
				current_page INTEGER NOT NULL CHECK (current_page >= 0),
				total_pages INTEGER NOT NULL CHECK (total_pages >= 0),
				progress_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
				last_read_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, book_id),
				CHECK (current_page <= total_pages)
			)
`,
			`
			CREATE TABLE reviews (
				id `+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				book_id INTEGER REFERENCES books (id) ON DELETE CASCADE NOT NULL,
				rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
				title TEXT,
				content TEXT
			)
`,
			`CREATE UNIQUE INDEX ux_reviews_user_id_book_id ON reviews (user_id, book_id)`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`DROP TABLE IF EXISTS reviews`,
			`DROP TABLE IF EXISTS reading_progress`,
			`DROP TABLE IF EXISTS book_pages`,
			`DROP TABLE IF EXISTS books`,
			`DROP TABLE IF EXISTS users`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
