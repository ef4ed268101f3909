package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"

	auth "github.com/axioquan/go-auth"
	"github.com/axioquan/go-auth/activitymap"
	"github.com/axioquan/go-auth/config"
	"github.com/axioquan/go-auth/metrics"
	"github.com/axioquan/go-auth/persistence"
)

type App struct {
	config  *config.Config
	db      *bun.DB
	repo    auth.RepositoryManager
	actions *auth.Actions
	guard   *auth.RouteGuard
	metrics *metrics.Metrics
	srv     *fiber.App
	logger  auth.Logger
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: auth.NewLogger(os.Stderr, cfg.LogLevel),
	}

	if cfg.LogLevel == "debug" {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
		fmt.Println("============")
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		app.logger.Error("persistence: %v", err)
		os.Exit(1)
	}
	defer app.db.Close()

	WithAuth(app)
	WithHTTPServer(app)

	go func() {
		app.logger.Info("listening on %s", cfg.HTTPAddr)
		if err := app.srv.Listen(cfg.HTTPAddr); err != nil {
			app.logger.Error("server stopped: %v", err)
		}
	}()

	sig := WaitExitSignal()
	app.logger.Info("received %s, shutting down", sig)

	if err := app.srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		app.logger.Error("shutdown: %v", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := persistence.Open(ctx, app.config.Persistence())
	if err != nil {
		return err
	}

	if err := persistence.Migrate(ctx, db); err != nil {
		db.Close()
		return err
	}

	app.db = db
	app.repo = auth.NewRepositoryManager(db)
	return app.repo.Validate()
}

func WithAuth(app *App) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(registry)

	sessions := auth.NewSessionManager(app.config).WithLogger(app.logger)

	app.actions = auth.NewActions(app.repo, sessions, app.config).
		WithLogger(app.logger).
		WithActivitySink(auth.MultiActivitySink{
			app.metrics,
			activitymap.AuditSink(activitymap.NewAuditLogger(os.Stdout, app.config.Environment == config.EnvironmentProduction)),
		})

	app.guard = auth.NewRouteGuard(sessions, app.config).WithLogger(app.logger)
}

func WithHTTPServer(app *App) {
	srv := fiber.New(fiber.Config{
		AppName:               "axioquan",
		DisableStartupMessage: true,
	})
	srv.Use(recover.New())

	auth.RegisterAuthRoutes(srv,
		auth.WithControllerActions(app.actions),
		auth.WithControllerGuard(app.guard),
		auth.WithControllerLogger(app.logger),
		auth.WithControllerDebug(app.config.LogLevel == "debug"),
	)

	srv.Get("/metrics", app.metrics.Handler())
	srv.Get("/healthz", func(c *fiber.Ctx) error {
		if err := app.db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("unavailable")
		}
		return c.SendString("ok")
	})

	app.srv = srv
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
