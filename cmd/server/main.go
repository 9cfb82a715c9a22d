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
	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/api/handlers"
	"github.com/almgren/publika/internal/api/middleware"
	job "github.com/almgren/publika/internal/jobs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/queue"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

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
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	postTargetRepo := repository.NewPostTargetRepository(db)
	platformResultRepo := repository.NewPlatformResultRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo)
	facebookService := service.NewFacebookService(*cfg, socialAccountRepo)
	instagramService := service.NewInstagramService(*cfg, socialAccountRepo, postMediaRepo, mediaAssetRepo)
	threadsService := service.NewThreadsService(*cfg, socialAccountRepo)
	tiktokService := service.NewTiktokService(*cfg, socialAccountRepo)
	youtubeService := service.NewYoutubeService(*cfg, integrationRepo)
	twitterService := service.NewTwitterService(*cfg, socialAccountRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	reconciler := service.NewReconciler(socialAccountRepo, integrationRepo, rdb)
	registryService := service.NewRegistryService(*cfg, socialAccountRepo, integrationRepo, reconciler, tiktokService, youtubeService)
	tokenResolver := service.NewTokenResolver(*cfg, socialAccountRepo, integrationRepo)

	publishers := map[string]service.Publisher{
		models.PlatformFacebook:  facebookService,
		models.PlatformInstagram: instagramService,
		models.PlatformThreads:   threadsService,
		models.PlatformYoutube:   youtubeService,
		models.PlatformTwitter:   twitterService,
	}

	postService := service.NewPostService(*cfg, db, postRepo, postTargetRepo, platformResultRepo, mediaAssetRepo, postMediaRepo, r2Service, tokenResolver, publishers)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService, userService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(platformService, registryService, reconciler, facebookService, instagramService, threadsService, tiktokService, youtubeService, twitterService, *cfg)
	app.Get("/auth/:platform", platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/results", post.PostResults)
	api.Post("/posts/remove", post.RemovePost)

	publish := handlers.NewPublishHandler(tokenResolver, publishers)
	api.Post("/social/:platform/post", publish.PublishToPlatform)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/disconnect", platform.DisconnectPlatform)
	api.Get("/connections", platform.GetConnections)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, integrationRepo, youtubeService, tiktokService, instagramService, threadsService, twitterService)

	//queue
	queueW := queue.NewQueue(postService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
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
