package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"saasbooks/internal/config"
	"saasbooks/internal/db"
	"saasbooks/internal/google"
	apihttp "saasbooks/internal/http"
	"saasbooks/internal/repository"
	"saasbooks/internal/service"
	"saasbooks/internal/stripeapi"
	"saasbooks/internal/vault"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionPurgeInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	box := vault.New(cfg.EncryptionKey)
	if err := box.CheckKey(); err != nil {
		logger.Fatal("encryption key", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)
	driveRepo := repository.NewPgDriveConfigRepository(pool)
	stripeRepo := repository.NewPgStripeAccountRepository(pool)

	var loginLimiter service.LoginRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, cfg.LoginRateWindow, cfg.LoginRateMax, logger)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewLoginRateLimiter(cfg.LoginRateWindow, cfg.LoginRateMax)
	}

	if !cfg.GoogleConfigured() {
		logger.Warn("google oauth not configured")
	}
	oauthClient := google.NewOAuthClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.GoogleTimeout)

	newDriveClient := func(ctx context.Context, accessToken string) (service.DriveAPI, error) {
		c, err := google.NewDriveClient(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		return c.WithCallTimeout(cfg.GoogleTimeout), nil
	}
	newStripeClient := func(apiKey string) service.StripeGateway {
		return stripeapi.New(apiKey, &http.Client{Timeout: cfg.StripeTimeout})
	}

	userSvc := service.NewUserService(logger, userRepo, loginLimiter)
	sessionSvc := service.NewSessionService(logger, sessionRepo, userRepo)
	driveSvc := service.NewDriveService(logger, driveRepo, newDriveClient, service.NewTokenRefresher(oauthClient), service.DriveServiceConfig{
		FolderName:    cfg.DriveFolderName,
		UploadTimeout: cfg.DriveUploadTimeout,
	})
	oauthSvc := service.NewOAuthService(logger, oauthClient, userSvc, sessionSvc, driveSvc)
	stripeSvc := service.NewStripeService(logger, stripeRepo, box, newStripeClient, cfg.StripeMaxTransactions)

	cookies := apihttp.NewCookieWriter(cfg.Production())
	router := apihttp.NewRouter(apihttp.RouterDeps{
		Logger:    logger,
		Sessions:  sessionSvc,
		Cookies:   cookies,
		Gate:      apihttp.NewAccessGate(cfg.ProtectedPrefixes, cfg.LoginPath),
		LoginPath: cfg.LoginPath,
		DB:        pool,
		Auth:      apihttp.NewAuthHandler(logger, userSvc, sessionSvc, cookies),
		OAuth:     apihttp.NewOAuthHandler(logger, oauthSvc, cookies, cfg.DashboardPath),
		Stripe:    apihttp.NewStripeHandler(logger, stripeSvc),
		Drive:     apihttp.NewDriveHandler(logger, driveSvc),
		App:       apihttp.NewAppHandler(logger, stripeSvc, driveSvc),
	})

	go purgeExpiredSessions(ctx, logger, sessionSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.Bool("production", cfg.Production()))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// purgeExpiredSessions limpia filas vencidas que nadie volvio a presentar.
func purgeExpiredSessions(ctx context.Context, logger *zap.Logger, sessions *service.SessionService) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}
