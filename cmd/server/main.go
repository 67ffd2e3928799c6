// Command chirper-server starts the Chirper REST API and its gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/chirper/internal/config"
	pkgcrypto "github.com/and161185/chirper/internal/crypto"
	"github.com/and161185/chirper/internal/limiter"
	"github.com/and161185/chirper/internal/logging"
	"github.com/and161185/chirper/internal/metrics"
	grpcserver "github.com/and161185/chirper/internal/server/grpc"
	"github.com/and161185/chirper/internal/server/httpapi"
	"github.com/and161185/chirper/internal/service"
	"github.com/and161185/chirper/internal/storage"
	"github.com/and161185/chirper/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

// main loads configuration, opens the store and serves HTTP and gRPC until signalled.
func main() {
	cfgPath := flag.String("config", "", "YAML config file (defaults to $CONFIG_PATH)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chirper-server %s (%s)\n", version, buildDate)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level, !cfg.IsProduction())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store.Driver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	m := metrics.New()

	backend, err := storage.Open(ctx, cfg.Store, limiter.Policy{
		Window:   cfg.Auth.LimiterWindow,
		MaxFails: cfg.Auth.LimiterMaxFails,
		BlockFor: cfg.Auth.LimiterBlockFor,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := backend.Close(cctx); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()

	images, err := newImageStore(cfg.Images, logger)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}
	mail := newMailer(cfg.Mail, logger)
	pub, closePub := newPublisher(cfg.NATS, logger)
	defer closePub()

	// Services
	hasher := pkgcrypto.NewHasher(cfg.Auth.BcryptCost)
	issuer := token.NewIssuer(
		[]byte(cfg.Auth.AccessSecret), []byte(cfg.Auth.RefreshSecret),
		cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL,
	)
	notifier := service.NewNotifier(backend.Notifications, pub, m, logger)

	authSvc := service.NewAuthService(backend.Accounts, issuer, hasher, backend.Limiter, mail, service.AuthOptions{
		ClientOrigin: cfg.HTTP.ClientOrigin,
		ResetTTL:     cfg.Auth.ResetTTL,
		Metrics:      m,
		Log:          logger,
	})
	socialSvc := service.NewSocialService(backend.Accounts, images, hasher, notifier, logger)
	postSvc := service.NewPostService(backend.Posts, backend.Accounts, images, notifier)
	noteSvc := service.NewNotificationService(backend.Notifications, backend.Accounts)

	api := httpapi.New(authSvc, socialSvc, postSvc, noteSvc, httpapi.Options{
		Production:    cfg.IsProduction(),
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		BodyLimit:     cfg.HTTP.BodyLimit,
		AuthRateLimit: cfg.Auth.RateLimit,
		APIRateLimit:  cfg.HTTP.RateLimit,
		Upload: httpapi.UploadOptions{
			TempDir:      cfg.Upload.TempDir,
			MaxBytes:     cfg.Upload.MaxBytes,
			AllowedMimes: cfg.Upload.AllowedMimes,
		},
		MediaDir:  mediaDir(cfg.Images),
		StaticDir: cfg.HTTP.StaticDir,
		Store:     backend,
	}, m, logger)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var (
		gs     *grpc.Server
		health *grpcserver.Health
	)
	if cfg.GRPC.Addr != "" {
		health = grpcserver.NewHealth(backend, cfg.GRPC.CheckInterval, m, logger)
		gs, err = grpcserver.New(health, grpcserver.Options{
			TLSCert:    cfg.GRPC.TLSCert,
			TLSKey:     cfg.GRPC.TLSKey,
			Reflection: !cfg.IsProduction() && cfg.GRPC.Reflection,
		}, logger)
		if err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go health.Run(ctx)
		go func() {
			logger.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
			if err := gs.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	// Wait for stop
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	// graceful shutdown
	if health != nil {
		health.Shutdown()
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if gs != nil {
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-sctx.Done():
			gs.Stop()
		}
	}
	return runErr
}
