package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`ALTER TABLE books ADD COLUMN content_version INTEGER NOT NULL DEFAULT 0`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`ALTER TABLE books DROP COLUMN content_version`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
