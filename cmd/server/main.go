package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/handler"
	"github.com/portfolio/backend/internal/logging"
	"github.com/portfolio/backend/internal/mailer"
	"github.com/portfolio/backend/internal/notify"
	"github.com/portfolio/backend/internal/repository"
	"github.com/portfolio/backend/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("load config failed", "error", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logging.Fatal("invalid config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// トランスポートは起動時に一度だけ選択する
	transport, mode, err := mailer.Select(cfg.Mail, slog.Default())
	if err != nil {
		logging.Fatal("mail transport setup failed", "error", err)
	}
	notifier := notify.New(transport, notify.Options{
		Sender:      cfg.Mail.Sender(),
		Recipient:   cfg.Mail.Recipient,
		OwnerName:   cfg.Mail.OwnerName,
		SendTimeout: cfg.Mail.SendTimeout,
		Mode:        mode,
	})

	repo, cleanup, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		logging.Fatal("open message store failed", "backend", cfg.Store.Backend, "error", err)
	}
	defer cleanup()

	contactService := service.NewContactService(repo, notifier, slog.Default())
	visitService := service.NewVisitService(notifier)

	router := handler.NewRouter(ctx, handler.RouterConfig{
		Contact:            contactService,
		Visit:              visitService,
		AllowedOrigins:     cfg.AllowedOrigins(),
		AdminToken:         cfg.AdminToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxyCount:  cfg.TrustedProxyCount,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// sends run inside the request and may take up to MAIL_SEND_TIMEOUT each
		WriteTimeout: 2*cfg.Mail.SendTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening",
			"addr", server.Addr,
			"env", cfg.Env,
			"mail_mode", mode,
			"store", cfg.Store.Backend,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
