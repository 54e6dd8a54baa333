package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livemanager/livemanager/internal/config"
	"github.com/livemanager/livemanager/internal/database"
	"github.com/livemanager/livemanager/internal/ffmpeg"
	internalhttp "github.com/livemanager/livemanager/internal/http"
	"github.com/livemanager/livemanager/internal/http/handlers"
	"github.com/livemanager/livemanager/internal/notify"
	"github.com/livemanager/livemanager/internal/observability"
	"github.com/livemanager/livemanager/internal/repository"
	"github.com/livemanager/livemanager/internal/scheduler"
	"github.com/livemanager/livemanager/internal/service"
	"github.com/livemanager/livemanager/internal/startup"
	"github.com/livemanager/livemanager/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the livemanager server",
	Long: `Start the livemanager HTTP server and background jobs.

The server provides:
- REST API for sessions, stream keys, and user management
- Health check endpoint with system metrics
- OpenAPI documentation at /docs
- Periodic reconciliation of broadcast processes
- Automatic start of scheduled sessions`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "host to bind to")
	serveCmd.Flags().Int("port", 0, "port to listen on")
	serveCmd.Flags().String("database", "", "database DSN")
	serveCmd.Flags().String("media-dir", "", "directory holding video files")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyServeFlags(cmd, cfg)

	setupLogging(cfg)
	logger := slog.Default()

	logger.Info("starting livemanager",
		slog.String("version", version.Short()),
	)

	db, err := database.New(cfg.Database, observability.WithComponent(logger, "database"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	sessionRepo := repository.NewLiveSessionRepository(db.DB)
	streamKeyRepo := repository.NewStreamKeyRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	ffmpegPath, err := ffmpeg.FindBinary(cfg.FFmpeg.BinaryPath)
	if err != nil {
		return fmt.Errorf("locating ffmpeg: %w", err)
	}
	logger.Info("using ffmpeg binary", slog.String("path", ffmpegPath))

	controller := ffmpeg.NewOSController().
		WithGracePeriod(cfg.FFmpeg.GracePeriod).
		WithLogger(observability.WithComponent(logger, "ffmpeg"))

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.Enabled {
		notifier = notify.NewMailer(cfg.Notify).
			WithLogger(observability.WithComponent(logger, "notify"))
	}

	liveService := service.NewLiveService(sessionRepo, streamKeyRepo, userRepo, controller).
		WithNotifier(notifier).
		WithFFmpeg(ffmpegPath, broadcastProfile(cfg.FFmpeg.Broadcast)).
		WithMediaDir(cfg.Storage.MediaDir).
		WithLogger(observability.WithComponent(logger, "live"))
	userService := service.NewUserService(userRepo).
		WithLogger(observability.WithComponent(logger, "users"))
	streamKeyService := service.NewStreamKeyService(streamKeyRepo).
		WithLogger(observability.WithComponent(logger, "streamkeys"))

	// Repair sessions left marked running by an unclean shutdown before
	// accepting traffic.
	if err := startup.RecoverStaleSessions(cmd.Context(), liveService, observability.WithComponent(logger, "startup")); err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}

	jobs := scheduler.New(liveService, cfg.Scheduler).
		WithLogger(observability.WithComponent(logger, "scheduler"))
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer jobs.Stop()

	server := internalhttp.NewServer(cfg.Server, observability.WithComponent(logger, "http"), version.Short())
	handlers.NewSessionHandler(liveService).WithLogger(logger).Register(server.API())
	handlers.NewStreamKeyHandler(streamKeyService).WithLogger(logger).Register(server.API())
	handlers.NewUserHandler(userService).WithLogger(logger).Register(server.API())
	handlers.NewHealthHandler(version.Short()).
		WithDB(db).
		WithSessionRepository(sessionRepo).
		Register(server.API())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	// Broadcast processes are detached and deliberately survive server
	// shutdown; the boot-time reconciliation re-adopts or repairs their
	// sessions on the next start.
	if err := server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// applyServeFlags overrides config values with explicitly set CLI flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("database") {
		cfg.Database.DSN, _ = cmd.Flags().GetString("database")
	}
	if cmd.Flags().Changed("media-dir") {
		cfg.Storage.MediaDir, _ = cmd.Flags().GetString("media-dir")
	}
}

func broadcastProfile(cfg config.BroadcastConfig) ffmpeg.BroadcastProfile {
	return ffmpeg.BroadcastProfile{
		VideoBitrate:      cfg.VideoBitrate,
		MaxBitrate:        cfg.MaxBitrate,
		BufferSize:        cfg.BufferSize,
		Resolution:        cfg.Resolution,
		KeyframeInterval:  cfg.KeyframeInterval,
		AudioBitrate:      cfg.AudioBitrate,
		ReconnectDelayMax: cfg.ReconnectDelayMax,
	}
}
