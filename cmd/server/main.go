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
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/curapost/configs"
	"github.com/maheshrc27/curapost/internal/api/handlers"
	"github.com/maheshrc27/curapost/internal/api/middleware"
	"github.com/maheshrc27/curapost/internal/database"
	job "github.com/maheshrc27/curapost/internal/jobs"
	"github.com/maheshrc27/curapost/internal/lock"
	"github.com/maheshrc27/curapost/internal/queue"
	"github.com/maheshrc27/curapost/internal/repository"
	"github.com/maheshrc27/curapost/internal/service"
	"github.com/maheshrc27/curapost/internal/transfer"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc := cfg.Location()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := database.NewMigrator(db).Run(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	httpClient := &http.Client{Timeout: cfg.TransportTimeout}

	productRepo := repository.NewProductRepository(db, loc)
	mediaRepo := repository.NewMediaRepository(db, loc)
	postRepo := repository.NewPostRepository(db, loc)
	postMediaRepo := repository.NewPostMediaRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)

	var mirror service.ObjectMirror
	if cfg.R2.Enabled() {
		r2Service, err := service.NewR2Service(ctx, cfg.R2)
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		mirror = r2Service
	}

	xService := service.NewXService(*cfg, credentialRepo, httpClient)
	if cfg.X.AccessToken != "" {
		if err := xService.SeedCredentials(ctx, cfg.X.AccessToken, cfg.X.RefreshToken); err != nil {
			slog.Warn("failed to seed X credentials", "error", err)
		}
	}

	enqueuer := queue.NewEnqueuer(client)
	shortener := service.NewShortenerService(cfg.BitlyAPIKey, httpClient)
	composer := service.NewComposer(shortener)
	allocator := service.NewSlotAllocator(cfg.Schedule.StartHour, cfg.Schedule.EndHour, cfg.Schedule.PostsPerDay, loc)
	mediaService := service.NewMediaService(mediaRepo, cfg.MediaDir, cfg.DownloadTimeout, &http.Client{}, mirror)
	dmmClient := service.NewDMMClient(cfg.DMM, httpClient, loc)
	catalogService := service.NewCatalogService(db, dmmClient, productRepo, mediaRepo)
	curationService := service.NewCurationService(productRepo, mediaRepo, postRepo, enqueuer)
	dispatchService := service.NewDispatchService(postRepo, mediaRepo, productRepo, xService, service.DispatchOptions{
		Timeout:     cfg.TransportTimeout,
		Concurrency: cfg.DispatchConcurrency,
		Location:    loc,
		Locker:      lock.NewRedisLocker(rdb, "curapost:lock:"),
		Shortener:   shortener,
	})
	schedulerService := service.NewSchedulerService(db, productRepo, mediaRepo, postRepo, postMediaRepo,
		composer, allocator, mediaService, dispatchService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(middleware.NewCORS(*cfg))

	app.Static("/media", cfg.MediaDir)

	auth := handlers.NewAuthHandler(*cfg)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/me", auth.Me)

	product := handlers.NewProductHandler(curationService)
	api.Get("/products", product.ListProducts)
	api.Get("/products/:id", product.GetProduct)
	api.Delete("/products/:id", product.RemoveProduct)
	api.Put("/products/:id/selection", product.SelectMedia)

	post := handlers.NewPostHandler(schedulerService, dispatchService, curationService, enqueuer)
	api.Post("/products/:id/posts", post.SchedulePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/dispatch", post.DispatchDue)
	api.Get("/posts/:id", post.GetPost)
	api.Post("/posts/:id/publish", post.PublishPost)
	api.Delete("/posts/:id", post.RemovePost)

	catalog := handlers.NewCatalogHandler(catalogService)
	api.Post("/catalog/fetch", catalog.FetchCatalog)

	// cron jobs
	dispatchJob := job.NewDispatchJob(dispatchService)
	catalogJob := job.NewCatalogJob(catalogService, transfer.CatalogFilter{})
	scheduleJob := job.NewScheduleJob(schedulerService, cfg.Schedule.BatchSize)
	refreshTokenJob := job.NewTokenRefreshJob(credentialRepo, xService)

	c, err := job.NewCron(loc,
		job.Entry{Name: "dispatch", Spec: cfg.Cron.Dispatch, Run: dispatchJob.Run},
		job.Entry{Name: "catalog", Spec: cfg.Cron.Catalog, Run: catalogJob.Run},
		job.Entry{Name: "schedule", Spec: cfg.Cron.Schedule, Run: scheduleJob.Run},
		job.Entry{Name: "token_refresh", Spec: cfg.Cron.TokenRefresh, Run: refreshTokenJob.RefreshTokens},
	)
	if err != nil {
		log.Fatalf("Failed to configure cron: %v", err)
	}
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(mediaService, dispatchService)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	go func() {
		mux := asynq.NewServeMux()
		queueW.Register(mux)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, server)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
