package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/booklook/booklook/pkg/config"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type key int

const ctxKey key = 0

func WithLogging(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey, true)
}

type logQueryHook struct {
	log   logger.Logger
	force bool
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	enabled, _ := ctx.Value(ctxKey).(bool)
	if !enabled && !qh.force {
		return
	}

	qh.log.Debug(event.Query, logger.Data{"duration_ms": time.Since(event.StartTime).Milliseconds()})
}

func New(cfg *config.Config) (*bun.DB, error) {
	var db *bun.DB

	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		// SQLite serializes writers anyway, and an in-memory database only
		// exists on the connection that created it.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		sqldb, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sqldb.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.DatabaseMaxOpenConns)
		db = bun.NewDB(sqldb, pgdialect.New())
	}

	if cfg.DatabaseDebug {
		db.AddQueryHook(&logQueryHook{log: logger.NewWithLevel("debug"), force: true})
	}

	// Retry a few times to give the database container time to come up.
	err := retry.Do(
		func() error {
			_, err := db.Exec("SELECT 1")
			return err
		},
		retry.Attempts(uint(max(cfg.DatabaseConnectRetryCount, 1))),
		retry.Delay(cfg.DatabaseConnectRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		// Cascading deletes depend on this.
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
	}

	return db, nil
}
