package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/api/handlers"
	"github.com/adnanh27/postbridge/internal/api/middleware"
	job "github.com/adnanh27/postbridge/internal/jobs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/oauthstate"
	"github.com/adnanh27/postbridge/internal/queue"
	"github.com/adnanh27/postbridge/internal/ratelimit"
	"github.com/adnanh27/postbridge/internal/repository"
	"github.com/adnanh27/postbridge/internal/scheduler"
	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/pkg/crypto"
)

const publishRateLimit = 30

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	vault, err := crypto.NewVault(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Invalid encryption key: %v", err)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)

	registry := service.NewRegistry()
	googleService := service.NewGoogleService(*cfg)
	registry.RegisterAdapter(googleService)
	for _, svc := range []interface {
		service.PlatformAdapter
		service.PlatformPublisher
	}{
		service.NewTwitterService(*cfg),
		service.NewLinkedinService(*cfg),
		service.NewFacebookService(*cfg),
		service.NewInstagramService(*cfg),
	} {
		registry.RegisterAdapter(svc)
		registry.RegisterPublisher(svc)
	}
	if err := registry.Validate(
		[]string{models.PlatformTwitter, models.PlatformLinkedIn, models.PlatformFacebook, models.PlatformInstagram, models.PlatformGoogle},
		[]string{models.PlatformTwitter, models.PlatformLinkedIn, models.PlatformFacebook, models.PlatformInstagram},
	); err != nil {
		log.Fatalf("Incomplete platform registry: %v", err)
	}

	stateManager := oauthstate.NewManager(cfg.SecretKey, oauthstate.NewRedisStore(redisClient))
	refreshScheduler := scheduler.NewRefreshScheduler(registry, socialAccountRepo, vault)
	jobScheduler := queue.NewScheduler(client, inspector)
	limiter := ratelimit.NewRedisLimiter(redisClient, publishRateLimit, time.Minute)

	authService := service.NewAuthService(googleService, userRepo)
	userService := service.NewUserService(userRepo)
	platformService := service.NewPlatformService(registry, stateManager, vault, socialAccountRepo, refreshScheduler)
	postService := service.NewPostService(postRepo, registry, jobScheduler)
	mediaService := service.NewMediaService(*cfg, mediaAssetRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(*cfg, platformService)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/:platform", platform.AddSocialAccount)
	api.Get("/auth/:platform/callback", platform.CallbackHandler)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Post("/posts/reschedule", post.ReschedulePost)
	api.Post("/posts/cancel", post.CancelPost)
	api.Post("/posts/remove", post.RemovePost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadMedia)
	api.Get("/media", media.ListMedia)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/remove", platform.DeleteSocialAccount)

	// cron jobs
	tokenSweepJob := job.NewTokenSweepJob(refreshScheduler)

	//queue
	queueW := queue.NewQueue(postRepo, socialAccountRepo, registry, vault, limiter)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", tokenSweepJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
