package main

import (
	"context"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/cache"
	"github.com/campusmatch/campusmatch/internal/config"
	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/logger"
	"github.com/campusmatch/campusmatch/internal/notify"
	"github.com/campusmatch/campusmatch/internal/server"
	"github.com/campusmatch/campusmatch/internal/service/chat"
	"github.com/campusmatch/campusmatch/internal/service/discovery"
	"github.com/campusmatch/campusmatch/internal/service/profile"
	"github.com/campusmatch/campusmatch/internal/service/swipe"
	"github.com/campusmatch/campusmatch/internal/ws"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	notifier := notify.NewRedisNotifier(redisCache, log)
	appCtx := app.New(cfg, database, redisCache, notifier, log)

	hub := ws.NewHub(log)
	go hub.Run()

	registrars := []server.Registrar{
		profile.NewRegistrar(appCtx),
		discovery.NewRegistrar(appCtx),
		swipe.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx),
		ws.NewRegistrar(appCtx, hub),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	router := server.NewRouter(cfg, log, registrars...)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
