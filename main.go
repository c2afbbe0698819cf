package main

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spotme/spotme/coach"
	"github.com/spotme/spotme/config"
	"github.com/spotme/spotme/controllers"
	"github.com/spotme/spotme/events"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/routes"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/store"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	rc := utils.NewRedis(cfg)
	kv := openStore(cfg, rc)

	users := services.NewUserService(kv, cfg.Location())
	engine := streak.NewEngine(kv, streak.WithZone(users.Location))
	postStore := posts.NewStore(kv)

	bus := events.New(rc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bus.Relay(ctx, func(err error) {
		utils.Sugar.Warnf("dropping malformed posted-today event: %v", err)
	}); err != nil {
		utils.Sugar.Warnf("posted-today relay disabled: %v", err)
	}

	board := services.NewLeaderboardService(users, postStore, engine, utils.NewCache(rc))
	bus.Subscribe(func(ev events.PostedToday) {
		utils.Sugar.Infow("posted today", "user", ev.UserID, "date", ev.DateISO, "post", ev.PostID)
	})
	bus.Subscribe(board.OnPostedToday)

	utils.StartUploadCleaner(ctx, 30*time.Minute, cfg.UploadDir, controllers.UploadURLPrefix,
		time.Duration(cfg.UploadOrphanHours)*time.Hour, postStore.ImageURIs)

	llm := coach.NewClient(coach.Options{
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout(),
	})

	r := routes.SetupRouter(cfg, routes.Dependencies{
		Engine:      engine,
		Users:       users,
		CheckIns:    services.NewCheckInService(engine, postStore, bus),
		Feed:        services.NewFeedService(engine, postStore, users.Location),
		Leaderboard: board,
		Badges:      services.NewBadgeService(users, postStore, engine),
		Routines:    services.NewRoutineService(kv),
		Coach:       services.NewCoachService(llm, users, postStore),
		Stats:       services.NewStatsService(users, postStore),
		Blacklist:   utils.NewTokenBlacklist(kv),
	})

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(cancel)
	if rc != nil {
		srv.OnShutdown(func() { _ = rc.Close() })
	}

	utils.Sugar.Infof("Starting server on port %s (store=%s)", cfg.AppPort, cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore picks the persistence backend named by the store driver.
func openStore(cfg config.AppConfig, rc *redis.Client) store.Store {
	switch strings.ToLower(cfg.StoreDriver) {
	case "mysql", "postgres":
		return store.NewGormStore(config.InitDatabase(&models.KVEntry{}))
	case "memory":
		utils.Sugar.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore()
	default:
		if rc == nil {
			utils.Sugar.Fatal("store driver redis selected but redis is unreachable")
		}
		return store.NewRedisStore(rc)
	}
}
