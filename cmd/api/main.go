package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/migrations"
	"github.com/booklook/booklook/pkg/server"
	"github.com/booklook/booklook/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting booklook", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	c, err := cache.New(ctx, cfg)
	if err != nil {
		log.Err(err).Fatal("cache error")
	}
	if cfg.RedisAddr == "" {
		log.Info("using in-process cache")
	} else {
		log.Info("using redis cache", logger.Data{"addr": cfg.RedisAddr})
	}

	srv, err := server.New(cfg, db, c)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"addr": listener.Addr().String(), "environment": cfg.Environment})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = c.Close()
	if err != nil {
		log.Err(err).Error("cache close error")
	}
	log.Info("cache closed")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
