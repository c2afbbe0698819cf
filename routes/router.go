package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/config"
	"github.com/spotme/spotme/controllers"
	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// Dependencies are the wired services the HTTP layer needs.
type Dependencies struct {
	Engine      *streak.Engine
	Users       *services.UserService
	CheckIns    *services.CheckInService
	Feed        *services.FeedService
	Leaderboard *services.LeaderboardService
	Badges      *services.BadgeService
	Routines    *services.RoutineService
	Coach       *services.CoachService
	Stats       *services.StatsService
	Blacklist   *utils.TokenBlacklist
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Dependencies) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := utils.Logger
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
		accessLog = gl
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static(controllers.UploadURLPrefix, cfg.UploadDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(deps.Users, deps.Blacklist)
	checkInController := controllers.NewCheckInController(deps.CheckIns, deps.Engine, deps.Users)
	postController := controllers.NewPostController(deps.Feed, deps.Users, cfg.UploadDir, cfg.UploadMaxSizeMB)
	boardController := controllers.NewLeaderboardController(deps.Leaderboard, deps.Badges)
	coachController := controllers.NewCoachController(deps.Coach, deps.Routines)
	statsController := controllers.NewStatsController(deps.Stats)

	authRequired := middleware.AuthRequired(deps.Blacklist)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	// LLM calls cost the user money; keep them on a tighter budget
	coachLimiter := middleware.NewRateLimiter(max(cfg.RateLimitPerMinute/6, 2))
	unlocked := middleware.FeedUnlocked(deps.Engine)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Middleware())
	authGroup.POST("/onboard", authController.Onboard)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PATCH("/profile", authRequired, authController.UpdateProfile)

	protected := api.Group("")
	protected.Use(authRequired, limiter.Middleware())

	protected.GET("/settings/apikey", authController.APIKeyStatus)
	protected.PUT("/settings/apikey", authController.SetAPIKey)
	protected.DELETE("/settings/apikey", authController.ClearAPIKey)

	protected.GET("/users/by-username/:username", authController.GetUserByUsername)
	protected.GET("/users/:id/posts", unlocked, postController.ListUserPosts)
	protected.GET("/users/:id/badges", boardController.Badges)

	protected.GET("/workout-types", checkInController.WorkoutTypes)
	protected.POST("/upload", postController.UploadPhoto)
	protected.POST("/checkins", checkInController.Submit)
	protected.GET("/streak", checkInController.Status)

	protected.GET("/feed", postController.Feed)
	protected.POST("/posts/:id/like", unlocked, postController.ToggleLike)
	protected.POST("/posts/:id/comments", unlocked, postController.CreateComment)

	protected.GET("/leaderboard", boardController.Leaderboard)
	protected.GET("/badges", boardController.Badges)
	protected.GET("/stats", statsController.GetStats)

	protected.GET("/routines", coachController.ListRoutines)
	protected.POST("/routines", coachController.SaveRoutine)
	protected.GET("/routines/current", coachController.CurrentRoutine)
	protected.GET("/routines/:id", coachController.GetRoutine)
	protected.DELETE("/routines/:id", coachController.DeleteRoutine)
	protected.PUT("/routines/:id/current", coachController.SetCurrentRoutine)

	coachGroup := protected.Group("/coach")
	coachGroup.Use(coachLimiter.Middleware())
	coachGroup.POST("/routines", coachController.GenerateRoutine)
	coachGroup.POST("/routines/modify", coachController.ModifyRoutine)
	coachGroup.POST("/analyze", coachController.AnalyzeWorkouts)
	coachGroup.POST("/gym-helper", coachController.GymHelper)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
