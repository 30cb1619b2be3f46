// Package main запускает HTTP-сервер интернет-магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/comfyshop/internal/auth"
	"github.com/mmeshcher/comfyshop/internal/config"
	"github.com/mmeshcher/comfyshop/internal/handler"
	"github.com/mmeshcher/comfyshop/internal/metrics"
	"github.com/mmeshcher/comfyshop/internal/middleware"
	"github.com/mmeshcher/comfyshop/internal/notify"
	"github.com/mmeshcher/comfyshop/internal/repository"
	"github.com/mmeshcher/comfyshop/internal/service"
	"github.com/mmeshcher/comfyshop/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Денежные суммы в JSON отдаются числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	codec := auth.NewCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)

	opts := service.Options{
		Metrics:           collector,
		ResetCodeTTL:      cfg.ResetCodeTTL,
		LowStockThreshold: cfg.LowStockThreshold,
	}

	if cfg.GoogleClientID != "" {
		google, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			sugar.Fatalw("google verifier initialization error", "error", err.Error())
		}
		opts.Google = google
	} else {
		sugar.Warn("GOOGLE_CLIENT_ID is not set, google login is disabled")
	}

	if cfg.S3Enabled() {
		store, err := storage.NewS3Store(ctx, storage.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			sugar.Fatalw("image storage initialization error", "error", err.Error())
		}
		opts.Images = store
	} else {
		sugar.Warn("S3_BUCKET is not set, product image upload is disabled")
	}

	var push notify.PushSender
	if cfg.FirebaseCredentialsJSON != "" {
		sender, err := notify.NewFCMSender(ctx, cfg.FirebaseCredentialsJSON, logger)
		if err != nil {
			sugar.Fatalw("push sender initialization error", "error", err.Error())
		}
		push = sender
	} else {
		sugar.Warn("FIREBASE_CREDENTIALS_JSON is not set, push notifications are disabled")
	}

	var mail notify.Mailer
	if cfg.BrevoAPIKey != "" {
		mail = notify.NewBrevoMailer(notify.DefaultBrevoURL, cfg.BrevoAPIKey, cfg.MailFromEmail, cfg.MailFromName, logger)
	} else {
		sugar.Warn("BREVO_API_KEY is not set, password reset emails are disabled")
	}

	dispatcher := notify.NewDispatcher(push, mail, repo, collector, logger, 0)
	opts.Notifier = dispatcher

	svc := service.NewService(repo, codec, logger, opts)
	defer svc.Close()

	if cfg.AdminEmail != "" {
		if err := svc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			sugar.Fatalw("admin seeding error", "error", err.Error())
		}
	}

	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute)
	defer authLimiter.Stop()

	h := handler.NewHandler(svc, logger, middleware.NewAuthMiddleware(codec), authLimiter, collector)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Диспетчер живёт дольше сервера: запросы, завершаемые при Shutdown, ещё ставят задачи.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()

	g.Go(func() error {
		return dispatcher.Run(dispatcherCtx)
	})

	g.Go(func() error {
		sugar.Infow("starting comfyshop server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer stopDispatcher()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
