package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/campuscircle/campuscircle/app/controllers"
	"github.com/campuscircle/campuscircle/internal/pkg/archive"
	"github.com/campuscircle/campuscircle/internal/pkg/cache"
	"github.com/campuscircle/campuscircle/internal/pkg/database"
	"github.com/campuscircle/campuscircle/internal/pkg/env"
	"github.com/campuscircle/campuscircle/internal/pkg/jobqueue"
	"github.com/campuscircle/campuscircle/internal/pkg/mail"
	"github.com/campuscircle/campuscircle/internal/pkg/metrics"
	"github.com/campuscircle/campuscircle/internal/pkg/outbox"
	"github.com/campuscircle/campuscircle/internal/pkg/payment"
	"github.com/campuscircle/campuscircle/internal/pkg/realtime"
	"github.com/campuscircle/campuscircle/internal/pkg/router"
)

func main() {
	app := NewApplication()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if m := jobqueue.GetManager(); m != nil {
		m.Stop()
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	startBackground()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/campuscircle to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // gateway notifications are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	})
	app.Get("/metrics", metricsAuth, monitor.New())
	app.Get("/metrics/prometheus", metricsAuth, adaptor.HTTPHandler(metrics.Handler()))

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startBackground wires the reconciliation service to the outbox relay and
// the job queue that drains it.
func startBackground() {
	db := database.GetDB()
	svc := payment.NewServiceFromDB(db)

	processors := jobqueue.Processors{
		Publisher:  realtime.NewRedisPublisher(cache.GetClient()),
		Mailer:     mail.NewSMTPMailer(mail.LoadConfig()),
		Deliveries: svc.Repository(),
	}

	archiveCfg, err := archive.LoadConfig()
	if err != nil {
		log.Printf("Archive disabled: %v", err)
	} else if archiveCfg.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := archive.NewClient(ctx, archiveCfg)
		cancel()
		if err != nil {
			log.Printf("Archive disabled: %v", err)
		} else {
			processors.Archiver = client
		}
	}

	outboxRepo := outbox.NewRepository(db)
	queue := jobqueue.NewQueue(env.GetEnvInt("JOBQUEUE_WORKERS", 3), processors)
	queue.SetFailureRecorder(outboxRepo)

	manager := jobqueue.NewManager(queue, outbox.NewRelay(outboxRepo, queue, outbox.DefaultBatchSize), 0)
	jobqueue.SetManager(manager)
	manager.Start()

	controllers.InitializePaymentController(svc, manager.NudgeRelay)
}
