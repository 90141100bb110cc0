package main // Entry point package

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/database"
	"github.com/todoapp/todo-api/internal/handler"
	"github.com/todoapp/todo-api/internal/logger"
	appmw "github.com/todoapp/todo-api/internal/middleware"
	"github.com/todoapp/todo-api/internal/queue"
	"github.com/todoapp/todo-api/internal/repository"
	"github.com/todoapp/todo-api/internal/router"
	queue_publisher "github.com/todoapp/todo-api/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for local development

	cfg := config.Load()

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("database open failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("database migrate failed", zap.Error(err))
	}

	// Redis is optional: without it the rate limiter and the token
	// revocation denylist are disabled and everything else keeps working.
	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable; rate limiting and token revocation disabled")
	}

	users := repository.NewUserRepo(db)
	tasks := repository.NewTaskRepo(db)

	var denylist appmw.TokenDenylist
	var revoker handler.TokenRevoker
	if rdb != nil {
		revoked := repository.NewRevokedTokenRepo(rdb)
		denylist = revoked
		revoker = revoked
	}

	go queue.StartTaskActivityConsumer(zl)

	authH := handler.NewAuthHandler(cfg, users, revoker, zl)
	taskH := handler.NewTaskHandler(tasks, queue_publisher.PublishTaskEvent, zl)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderOrigin},
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	e.Use(appmw.RateLimit(config.LoadRateLimitConfig(), rdb, zl))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, denylist, zl)
	router.RegisterTasks(e, taskH, cfg.JWTSecret, denylist, zl)

	addr := ":" + cfg.Port
	zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))

	if err := e.Start(addr); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
