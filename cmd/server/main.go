package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/adapters/http/routes"
	"ibc-intranet/internal/adapters/notify"
	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/seed"
	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/logger"
	"ibc-intranet/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "ibc-intranet/docs" // Swagger docs
)

// @title Intranet API
// @version 1.0
// @description Organisation intranet: members, inventory, events and projects

// @contact.name Intranet Team

// @BasePath /api/v1

// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name intranet_session

const sessionSweepInterval = 10 * time.Minute

var (
	rootCmd = &cobra.Command{
		Use:   "intranet",
		Short: "Organisation intranet backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(rt *deps) error {
				return nil
			})
		},
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap admin, plus demo inventory in dev mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(rt *deps) error {
				return seed.NewSeeder(rt.services, rt.logger, rt.cfg).Run(cmd.Context())
			})
		},
	}

	remindCmd = &cobra.Command{
		Use:   "remind",
		Short: "Send overdue reminders once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(rt *deps) error {
				sent, err := rt.services.Reminders.SendOverdueReminders(cmd.Context())
				if err != nil {
					return err
				}
				rt.logger.Info("reminder run finished", zap.Int("sent", sent))
				return nil
			})
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, remindCmd)
}

// deps bundles what every command needs
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	store    session.Store
	metrics  *metrics.Metrics
	services *services.Container
}

// withRuntime loads config, connects and migrates the database, wires services, runs fn and cleans up
func withRuntime(fn func(rt *deps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	zl, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := config.ConnectDatabase(cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			zl.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	zl.Info("database migration completed")

	ctx := context.Background()
	clk := clock.Real{}
	store, err := session.NewStore(ctx, zl, cfg, clk)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	notifier, err := newNotifier(cfg, zl)
	if err != nil {
		return err
	}

	m := metrics.New()
	rt := &deps{
		cfg:      cfg,
		logger:   zl,
		db:       db,
		store:    store,
		metrics:  m,
		services: services.NewContainer(db, store, notifier, clk, m, zl, cfg),
	}
	return fn(rt)
}

// newNotifier sends mail over SMTP when a host is configured and logs otherwise
func newNotifier(cfg *config.Config, zl *zap.Logger) (services.Notifier, error) {
	templates, err := notify.NewTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.Mail.Host == "" {
		zl.Warn("SMTP_HOST not set, notifications are only logged")
		return notify.NewLogNotifier(templates, zl), nil
	}
	return notify.NewMailer(cfg.Mail, templates, zl), nil
}

func serve() error {
	return withRuntime(func(rt *deps) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := rt.services.Reminders.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer rt.services.Reminders.Stop()

		if mem, ok := rt.store.(*session.MemoryStore); ok {
			go sweepSessions(ctx, mem)
		}

		app := fiber.New(fiber.Config{
			AppName:      "Intranet API v1.0",
			ErrorHandler: middleware.CustomErrorHandler,
		})

		middleware.Setup(app, rt.cfg)
		routes.Setup(app, rt.db, rt.store, rt.services, rt.metrics, rt.logger, rt.cfg)

		go func() {
			<-ctx.Done()
			rt.logger.Info("shutting down server")
			if err := app.Shutdown(); err != nil {
				rt.logger.Error("error during shutdown", zap.Error(err))
			}
		}()

		rt.logger.Info("server starting", zap.String("port", rt.cfg.Port), zap.String("mode", rt.cfg.AppMode))
		if err := app.Listen(":" + rt.cfg.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		rt.logger.Info("server stopped gracefully")
		return nil
	})
}

func sweepSessions(ctx context.Context, store *session.MemoryStore) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Sweep()
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("intranet: %v", err)
		os.Exit(1)
	}
}
