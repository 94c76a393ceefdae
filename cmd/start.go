package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"media-index/core/config"
	"media-index/core/loader"
	"media-index/core/logger"
	"media-index/core/middleware/auth"
	"media-index/core/middleware/httpmetrics"
	"media-index/core/middleware/rayid"

	"media-index/feature/integrity"
	"media-index/feature/mediaindex"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "media-index/docs/swagger"
)

// @title Media Index API
// @version 1.0
// @description Builds and queries the media usage index of a site.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the media index server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect backends and build the indexer
		comp, err := wire(cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize index", zap.Error(err))
		}
		logg.Info("Index backend ready", zap.String("backend", cfg.Index.Backend))

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		})

		// 4. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(mediaindex.NewFeature(comp.indexer, logg))
		mgr.Register(integrity.NewFeature(comp.integrityService(cfg, logg)))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Request metrics
		app.Use(httpmetrics.New(httpmetrics.DefaultConfig()))

		// 4. Public endpoints
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 5. Auth (Protect API)
		if !cfg.Server.AuthEnabled() {
			logg.Warn("API key not set, index endpoints are unauthenticated")
		}
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("addr", cfg.Server.Addr()))
			if err := app.Listen(cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
		if err := comp.indexer.Close(); err != nil {
			logg.Warn("Indexer close failed", zap.Error(err))
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
