package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/unclefab/unclefab-auth/internal/accounts"
	"github.com/unclefab/unclefab-auth/internal/app"
	"github.com/unclefab/unclefab-auth/internal/auth"
	"github.com/unclefab/unclefab-auth/internal/mailer"
	"github.com/unclefab/unclefab-auth/internal/oauth"
	"github.com/unclefab/unclefab-auth/internal/observability"
	"github.com/unclefab/unclefab-auth/internal/platform/cache"
	"github.com/unclefab/unclefab-auth/internal/platform/db"
	"github.com/unclefab/unclefab-auth/internal/token"
	"github.com/unclefab/unclefab-auth/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens, err := token.NewService(token.Config{
		AccessSecret:            cfg.AccessTokenSecret,
		AccessTTL:               cfg.AccessTokenTTL,
		RefreshSecret:           cfg.RefreshTokenSecret,
		RefreshTTL:              cfg.RefreshTokenTTL,
		EmailVerificationSecret: cfg.EmailVerificationSecret,
		EmailVerificationTTL:    cfg.EmailVerificationTTL,
		PasswordResetSecret:     cfg.PasswordResetSecret,
		PasswordResetTTL:        cfg.PasswordResetTTL,
	})
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	store := accounts.NewStore(accounts.NewRepository(pool))

	mail := mailer.New(mailer.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		From:        cfg.SMTPFrom,
		FrontendURL: cfg.FrontendURL,
	})

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authService := auth.NewService(store, tokens, mail, queue, logger)
	authHandler := auth.NewHandler(logger, authService, tokens, metrics, auth.HandlerConfig{
		SecureCookies: cfg.IsProduction(),
	})

	var oauthHandler *oauth.Handler
	oauthService := oauth.NewService(oauth.Config{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GoogleCallbackURL:  cfg.GoogleCallbackURL,
	}, store, tokens)
	if oauthService != nil {
		oauthHandler = oauth.NewHandler(logger, oauthService, oauth.NewRedisStateStore(redisClient), cfg.FrontendURL)
	} else {
		logger.Warn("google oauth not configured, federated login disabled")
	}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		OAuthHandler: oauthHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("auth service listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}
