package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/config"
	http_controllers "github.com/librarydesk/librarydesk/internal/http"
	"github.com/librarydesk/librarydesk/internal/scheduler"
	"github.com/librarydesk/librarydesk/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for SIGINT or SIGTERM, then drain within the shutdown timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Background work stops after the last request has been answered.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// digestJob returns the scheduled notification job. With a task queue the
// digests are enqueued and retried by workers; otherwise they are sent inline.
func digestJob(app *App, taskClient *tasks.Client) scheduler.Job {
	if taskClient != nil {
		return taskClient.EnqueueDigests
	}
	return func(ctx context.Context) error {
		if _, err := app.Notifications.SendOverdue(ctx); err != nil {
			return err
		}
		_, err := app.Notifications.SendReminders(ctx)
		return err
	}
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Library Desk v%s", version)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Tasks.DatabasePath, tasks.ConfigFrom(cfg.Tasks, cfg.Audit))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewSendDigestQueue(app.Notifications),
			tasks.NewPruneAuditTrailQueue(app.Auditor),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	var notificationScheduler *scheduler.NotificationScheduler
	if cfg.Notifications.ScheduleEnabled {
		notificationScheduler = scheduler.NewNotificationScheduler(cfg.Notifications.Schedule, digestJob(app, taskClient))
		if err := notificationScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start notification scheduler: %v", err)
		}
	}

	switch cfg.Auth.Mode {
	case config.AuthModeToken:
		log.Printf("Authentication mode: token (bearer token required)")
	default:
		log.Printf("Authentication mode: none (acting user taken from request bodies)")
	}

	limiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(cfg.Auth))
	defer limiter.Stop()

	router := http_controllers.NewRouter(app.RouterConfig(limiter, version))

	onShutdown := func(ctx context.Context) {
		if notificationScheduler != nil {
			notificationScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
