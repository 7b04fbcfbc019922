package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ridelink/ride-hail-backend/internal/config"
	"github.com/ridelink/ride-hail-backend/internal/database"
	"github.com/ridelink/ride-hail-backend/internal/handler"
	"github.com/ridelink/ride-hail-backend/internal/middleware"
	"github.com/ridelink/ride-hail-backend/internal/queue"
	"github.com/ridelink/ride-hail-backend/internal/repository"
	"github.com/ridelink/ride-hail-backend/internal/router"
	queue_publisher "github.com/ridelink/ride-hail-backend/internal/service"
	"github.com/ridelink/ride-hail-backend/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("database schema: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	jwtSvc := utils.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)

	// Events are best effort: publish failures are logged inside the
	// publisher and never fail the request.
	publish := func(ctx context.Context, ev queue.AccountEvent) {
		go func() { _ = queue_publisher.PublishAccountEvent(ctx, ev) }()
	}
	authH := handler.NewAuthHandler(users, tokens, jwtSvc, cfg.BcryptCost)
	authH.Publish = publish
	adminH := handler.NewAdminHandler(users)
	adminH.Publish = publish

	// Rate limiter degrades to a pass-through when Redis is unreachable.
	var limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Print("redis unavailable; rate limiting disabled")
	}

	// Mirror account events into logs/accounts.log in the background.
	go func() {
		if err := queue.StartAccountConsumer(); err != nil {
			log.Printf("account consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, jwtSvc, limiter)
	router.RegisterAdmin(e, adminH, jwtSvc, users.GetByID)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
