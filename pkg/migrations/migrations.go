package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	err := migrator.Init(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

// serialPrimaryKey returns the column definition for an auto-incrementing
// integer primary key in the dialect db is using.
func serialPrimaryKey(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func execAll(ctx context.Context, db *bun.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to run %q", stmt)
		}
	}
	return nil
}
