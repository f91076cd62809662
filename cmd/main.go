package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"coursepass/internal/caching"
	"coursepass/internal/chain"
	"coursepass/internal/config"
	"coursepass/internal/handlers"
	"coursepass/internal/jobs"
	"coursepass/internal/jobs/background"
	"coursepass/internal/logger"
	"coursepass/internal/middleware"
	"coursepass/internal/repositories"
	"coursepass/internal/services"
	"coursepass/pkg/database"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL")})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("database connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	cacheSvc := caching.NewRedisCacheService(redisClient)

	chainClient := chain.NewClient(cfg.Chain.RPCURL, chain.Addresses{
		Registrar:    cfg.Chain.Registrar,
		Marketplace:  cfg.Chain.Marketplace,
		Membership:   cfg.Chain.Membership,
		PaymentToken: cfg.Chain.PaymentToken,
	})

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	groupRepo := repositories.NewGroupRepo(pool)
	membershipRepo := repositories.NewMembershipRepo(pool)
	adminRepo := repositories.NewAdministratorRepo(pool)

	// Task queue
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	enqueuer := jobs.NewEnqueuer(asynqClient, cfg.Jobs.RegisterMaxAttempts)

	// Services
	clock := services.SystemClock()
	revShareSvc := services.NewRevShareService(userRepo)
	courseSvc := services.NewCourseService(groupRepo, chainClient, cacheSvc, clock)
	subscriptionSvc := services.NewSubscriptionService(groupRepo, chainClient, cacheSvc, clock, cfg.Billing.PlatformPriceUSDC)
	marketplaceSvc := services.NewMarketplaceService(
		chainClient, cacheSvc, clock,
		cfg.Chain.Marketplace,
		time.Duration(cfg.Pass.MaxListingDurationSeconds)*time.Second,
	)
	accessSvc := services.NewAccessService(groupRepo, membershipRepo, adminRepo, subscriptionSvc, cacheSvc)
	groupSvc := services.NewGroupService(
		groupRepo, membershipRepo, adminRepo, userRepo,
		revShareSvc, courseSvc, chainClient, cacheSvc, enqueuer, clock,
		cfg.Pass.DurationSeconds, cfg.Pass.TransferCooldownSeconds,
		cfg.Chain.TreasuryAddress, cfg.Billing.PlatformFeeBps,
	)

	// Handlers
	groupHandlers := handlers.NewGroupHandlers(groupSvc, accessSvc, subscriptionSvc, courseSvc)
	marketplaceHandlers := handlers.NewMarketplaceHandlers(marketplaceSvc, courseSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient)

	// Background workers
	registrar := jobs.NewCourseRegistrar(chainClient, log)
	worker := jobs.NewWorkerServer(
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		time.Duration(cfg.Jobs.RegisterRetrySeconds)*time.Second,
	)
	go func() {
		if err := worker.Run(jobs.NewMux(registrar)); err != nil {
			log.Fatal().Err(err).Msg("task worker stopped")
		}
	}()

	scheduler, err := background.NewJobScheduler(
		groupRepo, subscriptionSvc, marketplaceSvc, cacheSvc, log,
		time.Duration(cfg.Jobs.RenewalSweepMinutes)*time.Minute,
		time.Duration(cfg.Jobs.FloorRefreshMinutes)*time.Minute,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("scheduler shutdown failed")
		}
	}()

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	jwtConfig := echojwt.Config{
		SigningKey: []byte(cfg.JWT.Secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	}

	v1 := e.Group("/v1")

	// group view is visible to guests; everything else needs a session
	v1.GET("/groups/:id", groupHandlers.GetGroup, middleware.OptionalSessionMiddleware(userRepo, cfg.JWT.Secret))
	v1.GET("/courses/:courseId", marketplaceHandlers.GetCourse)
	v1.GET("/courses/:courseId/floor-price", marketplaceHandlers.GetFloorPrice)
	v1.GET("/courses/:courseId/listings", marketplaceHandlers.GetListings)

	protected := v1.Group("")
	protected.Use(echojwt.WithConfig(jwtConfig))
	protected.Use(middleware.SessionMiddleware(userRepo))

	protected.POST("/groups", groupHandlers.CreateGroup)
	protected.PUT("/groups/:id/settings", groupHandlers.UpdateGroupSettings)
	protected.DELETE("/groups/:id", groupHandlers.DeleteGroup)
	protected.POST("/groups/:id/join", groupHandlers.JoinGroup)
	protected.POST("/groups/:id/leave", groupHandlers.LeaveGroup)
	protected.POST("/groups/:id/subscription/renew", groupHandlers.RenewSubscription)
	protected.POST("/groups/:id/subscription/reset-course", groupHandlers.ResetCourse)

	protected.POST("/courses/:courseId/listings", marketplaceHandlers.CreateListing)
	protected.DELETE("/courses/:courseId/listings", marketplaceHandlers.CancelListing)
	protected.POST("/courses/:courseId/listings/buy", marketplaceHandlers.BuyListing)
	protected.POST("/courses/:courseId/renew", marketplaceHandlers.RenewPass)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("server starting")
		if err := e.Start(cfg.HTTP.Addr()); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	worker.Shutdown()
}
