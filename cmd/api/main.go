// Package main is the entry point of the conversion API server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/convertey/convertey-api/internal/config"
	"github.com/convertey/convertey-api/internal/convert"
	"github.com/convertey/convertey-api/internal/extconv"
	"github.com/convertey/convertey-api/internal/logging"
	"github.com/convertey/convertey-api/internal/middleware"
	"github.com/convertey/convertey-api/internal/pdfgen"
	"github.com/convertey/convertey-api/internal/ratelimit"
	"github.com/convertey/convertey-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.Init(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	svc, err := newService(cfg)
	if err != nil {
		log.Fatalf("Failed to init conversion service: %v", err)
	}

	var limiter middleware.Limiter
	if cfg.RateLimitRedisAddr != "" {
		fw, err := ratelimit.NewFixedWindow(cfg.RateLimitRedisAddr, cfg.RateLimitRedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("Failed to init rate limiter: %v", err)
		}
		defer fw.Close()
		limiter = fw
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLog(),
		middleware.SecurityHeaders(),
	)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		middleware.RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, svc, limiter)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.ConversionTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server_listening", "addr", addr, "mode", cfg.GinMode)
	if err := serve(ctx, srv, shutdownTimeout); err != nil {
		slog.Error("server_error", "error", err)
	}
}

const shutdownTimeout = 30 * time.Second

// serve runs srv until ctx is done, then drains in-flight requests for at
// most timeout.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// newService wires the dispatcher with its storage, external converters and
// format table.
func newService(cfg *config.Config) (*convert.Service, error) {
	store, err := storage.NewLocal(cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	table := convert.DefaultFormatTable()
	if cfg.FormatTablePath != "" {
		if table, err = convert.LoadFormatTable(cfg.FormatTablePath); err != nil {
			return nil, err
		}
	}

	return convert.NewService(convert.Dependencies{
		Table:     table,
		Storage:   store,
		Office:    extconv.NewOffice(cfg.SofficePath, cfg.ConversionTimeout),
		Media:     extconv.NewFFmpeg(cfg.FFmpegPath, cfg.ConversionTimeout),
		Paginator: pdfgen.New(),
	}, convert.Options{
		MaxFileSize: cfg.MaxFileSize,
		Timeout:     cfg.ConversionTimeout,
	}), nil
}
