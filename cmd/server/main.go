package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intelvis/intelvis/internal/logger"
	"github.com/intelvis/intelvis/internal/server/api"
	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/internal/server/storage"
	"github.com/intelvis/intelvis/internal/server/telemetry"
	"github.com/intelvis/intelvis/pkg/version"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "intelvis-server"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "IntelVis server - sensor device provisioning and pairing",
	Long:  "Backend for IntelVis sensors: user accounts, device provisioning, claiming by MAC address and liveness tracking",
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Run:   runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	Run:   runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Println(version.GetVersionInfo())
			return
		}
		fmt.Println(version.GetVersion(appName))
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show detailed build information")
	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads .env (if any) and the environment, then sets up logging.
func loadConfig() *config.Config {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if envErr != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config) *storage.DB {
	db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("failed to connect to database")
	}
	return db
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	db := openStore(ctx, cfg)
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if len(applied) == 0 {
		fmt.Println("Database is up to date.")
		return
	}
	fmt.Printf("Applied %d migration(s).\n", len(applied))
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if err := cfg.ValidateServe(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().Str("version", version.GetVersion(appName)).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := openStore(ctx, cfg)
	defer db.Close()
	log.Info().Str("driver", cfg.DatabaseDriver).Msg("database connected")

	if _, err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	userRepo := storage.NewUserRepository(db)
	deviceRepo := storage.NewDeviceRepository(db)

	emailService := services.NewEmailService(cfg.Email, cfg.SiteURL)
	if !emailService.Enabled() {
		log.Info().Msg("email delivery disabled")
	}

	authService := services.NewAuthService(userRepo, emailService, cfg)
	deviceService := services.NewDeviceService(deviceRepo, userRepo, emailService, cfg.OnlineWindow)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	if cfg.MQTT.Enabled() {
		sub := telemetry.NewSubscriber(cfg.MQTT, deviceService, m, log.Logger)
		if err := sub.Start(ctx); err != nil {
			log.Error().Err(err).Msg("MQTT pings unavailable")
		} else {
			defer sub.Stop()
		}
	}

	router := api.NewRouter(api.Deps{
		Config:        cfg,
		Logger:        log.Logger,
		AuthService:   authService,
		DeviceService: deviceService,
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
