package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`
			CREATE TABLE user_favorites (
				user_id INTEGER REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				book_id INTEGER REFERENCES books (id) ON DELETE CASCADE NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, book_id)
			)
`,
			`CREATE INDEX ix_user_favorites_user_id_created_at ON user_favorites (user_id, created_at)`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`DROP TABLE IF EXISTS user_favorites`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
