package main

import (
	"os"
	"strings"

	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/migrations"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)

	app := &cli.App{
		Name:  "migrations",
		Usage: "manage the booklook database schema",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create the migration bookkeeping tables",
				Action: func(c *cli.Context) error {
					return errors.WithStack(migrator.Init(c.Context))
				},
			},
			{
				Name:  "migrate",
				Usage: "apply every pending migration",
				Action: func(c *cli.Context) error {
					group, err := migrations.BringUpToDate(c.Context, db)
					if err != nil {
						return err
					}
					if group.IsZero() {
						log.Info("schema is up to date")
						return nil
					}
					log.Info("migrated", logger.Data{"group": group.String()})
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: func(c *cli.Context) error {
					group, err := migrator.Rollback(c.Context)
					if err != nil {
						return errors.WithStack(err)
					}
					if group.IsZero() {
						log.Info("nothing to roll back")
						return nil
					}
					log.Info("rolled back", logger.Data{"group": group.String()})
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "create a Go migration",
				ArgsUsage: "<name words>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.New("a migration name is required")
					}
					name := strings.Join(c.Args().Slice(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name, migrate.WithGoTemplate(migrationTemplate))
					if err != nil {
						return errors.WithStack(err)
					}
					log.Info("created migration", logger.Data{"name": mf.Name, "path": mf.Path})
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "show applied and pending migrations",
				Action: func(c *cli.Context) error {
					ms, err := migrator.MigrationsWithStatus(c.Context)
					if err != nil {
						return errors.WithStack(err)
					}
					log.Info("migration status", logger.Data{
						"applied":    ms.Applied().String(),
						"unapplied":  ms.Unapplied().String(),
						"last_group": ms.LastGroup().String(),
					})
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("migrations failed")
	}
}

// migrationTemplate matches the layout of the files in pkg/migrations.
const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`+"``"+`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`+"``"+`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
