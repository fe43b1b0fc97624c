package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/api/handlers"
	"github.com/maheshrc27/broadcast/internal/api/middleware"
	"github.com/maheshrc27/broadcast/internal/database"
	job "github.com/maheshrc27/broadcast/internal/jobs"
	"github.com/maheshrc27/broadcast/internal/metrics"
	"github.com/maheshrc27/broadcast/internal/queue"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := database.Open(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("database migrated", "version", version, "dirty", dirty)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    10 * 1024 * 1024, // 10 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(metrics.HTTP())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Cron-Secret",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	httpClient := &http.Client{Timeout: cfg.AdapterTimeout}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	postResultRepo := repository.NewPostResultRepository(db)
	connectionRepo := repository.NewPlatformConnectionRepository(db)
	oauthStateRepo := repository.NewOAuthStateRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)

	imageService := service.NewImageService(httpClient)
	connectionService := service.NewConnectionService(*cfg, connectionRepo)
	quotaService := service.NewQuotaService(*cfg, profileRepo, connectionRepo)

	twitterService := service.NewTwitterService(*cfg, "", httpClient)
	linkedInService := service.NewLinkedInService(*cfg, "", httpClient, imageService)
	mastodonService := service.NewMastodonService(*cfg, httpClient, imageService)
	blueskyService := service.NewBlueskyService("", httpClient, imageService, connectionService)
	adapters := service.NewAdapters(twitterService, linkedInService, mastodonService, blueskyService)

	publisherService := service.NewPublisherService(*cfg, adapters, quotaService, connectionService, postRepo, postResultRepo, profileRepo)
	schedulerService := service.NewSchedulerService(publisherService, connectionService, postRepo, profileRepo)
	postService := service.NewPostService(postRepo, postResultRepo)
	platformService := service.NewPlatformService(*cfg, oauthStateRepo, connectionService, quotaService,
		twitterService, linkedInService, mastodonService, blueskyService)
	authService := service.NewAuthService(*cfg, db, userRepo, profileRepo)
	userService := service.NewUserService(userRepo, quotaService)
	billingService := service.NewBillingService(*cfg, userRepo, profileRepo)
	uploadService := service.NewUploadService(service.NewR2Service(*cfg), mediaAssetRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(platformService, *cfg)
	app.Get("/auth/:platform/callback", platform.Callback)
	app.Get("/api/platforms", platform.Capabilities)

	payment := handlers.NewPaymentHandler(billingService)
	app.Post("/api/stripe/webhook", payment.PaymentWebhook)

	cronHandler := handlers.NewCronHandler(schedulerService)
	cronRoutes := app.Group("/api/cron", authMiddleware.CronSecret())
	cronRoutes.Post("/process-scheduled-posts", cronHandler.ProcessScheduledPosts)
	cronRoutes.Post("/reset-monthly-limits", cronHandler.ResetMonthlyLimits)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())
	api.Use(middleware.RateLimit(cfg.RateLimit, rdb))

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	post := handlers.NewPostHandler(postService, publisherService)
	api.Post("/posts", post.SubmitPost)
	api.Post("/posts/preview", post.PreviewPost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Delete("/posts/:id", post.RemovePost)

	api.Get("/accounts", platform.ListConnections)
	api.Get("/auth/platform-limit", platform.PlatformLimit)
	api.Post("/auth/:platform/connect", platform.Connect)
	api.Post("/auth/:platform/disconnect", platform.Disconnect)

	upload := handlers.NewUploadHandler(uploadService)
	api.Post("/upload-image", upload.UploadImage)

	api.Post("/stripe/create-checkout", payment.CreateCheckout)
	api.Post("/stripe/create-portal", payment.CreatePortal)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(connectionService, oauthStateRepo, twitterService, linkedInService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n := refreshTokenJob.Run(ctx)
		slog.Info("token refresh finished", "refreshed", n)
	})
	c.Start()
	defer c.Stop()

	// scheduled sweep
	var (
		asynqServer    *asynq.Server
		asynqScheduler *asynq.Scheduler
	)
	if cfg.EnableScheduler {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		queueW := queue.NewQueue(schedulerService)

		asynqScheduler = asynq.NewScheduler(redisConn, &asynq.SchedulerOpts{Location: time.UTC})
		if err := queue.RegisterPeriodic(asynqScheduler); err != nil {
			log.Fatalf("Could not register periodic tasks: %v", err)
		}
		if err := asynqScheduler.Start(); err != nil {
			log.Fatalf("Could not start Asynq scheduler: %v", err)
		}

		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 2,
		})
		log.Println("Starting the Asynq server...")
		if err := asynqServer.Start(queueW.Mux()); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on :%s", cfg.Port)

	gracefulShutdown(app, asynqServer, asynqScheduler)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, scheduler *asynq.Scheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Shutdown()
	}
	if server != nil {
		server.Shutdown()
	}

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
