package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"autopost-backend/config"
	_ "autopost-backend/docs" // Important for Swagger
	"autopost-backend/internal/delivery/http/middleware"
	v1 "autopost-backend/internal/delivery/http/v1"
	"autopost-backend/internal/domain"
	"autopost-backend/internal/repository/postgres"
	"autopost-backend/internal/usecase"
	"autopost-backend/pkg/auth"
	"autopost-backend/pkg/database"
	"autopost-backend/pkg/email"
	"autopost-backend/pkg/gdrive"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/queue"
	"autopost-backend/pkg/redis"
	"autopost-backend/pkg/security"
	"autopost-backend/pkg/storage"
	"autopost-backend/pkg/validation"
)

// @title           AutoPost Backend API
// @version         1.0
// @description     Onboarding, beta intake, Drive upload relay and admin views for the AutoPost agent.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting autopost backend", "port", cfg.Port, "env", cfg.Environment)
	audit := security.InitSecurityLogger("autopost-backend", cfg.Environment)

	ctx := context.Background()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if cfg.SecurityLogToDB {
		audit.SetPersistFunc(security.NewSecurityEventRepository(dbPool).PersistEvent)
	}

	// 4. Setup Redis (optional)
	if err := redis.Initialize(redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword}); err != nil {
		logger.Log.Warn("Redis unavailable, using in-process queue and rate limits", "error", err)
	}
	defer redis.Close()

	// 5. Setup Repositories
	onboardingRepo := postgres.NewOnboardingRepository(dbPool)
	requestRepo := postgres.NewVideoRequestRepository(dbPool)
	intakeRepo := postgres.NewIntakeRepository(dbPool)
	credentialRepo := postgres.NewCredentialRepository(dbPool)
	roleRepo := postgres.NewRoleRepository(dbPool)
	adminRepo := postgres.NewAdminRepository(dbPool)

	// 6. Setup Notification Queue
	backoff := queue.Backoff{Base: cfg.NotifyBaseBackoff, Max: cfg.NotifyMaxBackoff}
	var jobs queue.Queue
	if client := redis.Client(); client != nil {
		jobs, err = queue.NewRedisJobQueue(client, queue.RedisQueueConfig{
			Stream:      cfg.NotifyStream,
			Group:       cfg.NotifyGroup,
			MaxAttempts: cfg.NotifyMaxAttempts,
			Backoff:     backoff,
		})
		if err != nil {
			logger.Log.Error("Failed to create notification queue", "error", err)
			os.Exit(1)
		}
	} else {
		jobs = queue.NewMemoryQueue(1024, cfg.NotifyMaxAttempts, backoff)
	}
	notifier := usecase.NewNotifier(jobs)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	sender, err := email.NewSender(cfg)
	if err != nil {
		logger.Log.Warn("Email not configured - notifications stay queued until a sender is set", "error", err)
	} else {
		dispatcher := usecase.NewNotificationDispatcher(sender, usecase.DispatcherConfig{
			From:      cfg.EmailFrom,
			TeamEmail: cfg.TeamEmail,
			SiteURL:   cfg.SiteURL,
		})
		jobs.Start(workerCtx, cfg.NotifyConsumers, usecase.JobHandler(dispatcher))
	}

	// 7. Setup Upload Relay
	opts := usecase.UploadOptions{
		MaxBytes: cfg.MaxUploadBytes,
		Limiter:  security.NewUploadLimiter(cfg.UploadsPerMinute, cfg.UploadsPerDay),
		Fetcher:  usecase.NewVideoFetcher(cfg.VideoFetchTimeout, cfg.MaxUploadBytes, cfg.VideoFetchAllowPrivate),
		Audit:    audit,
	}

	var drive usecase.DriveClient
	driveClient, err := gdrive.New(ctx, gdrive.Config{
		ServiceAccountEmail: cfg.GoogleServiceAccountEmail,
		PrivateKey:          cfg.GooglePrivateKey,
		RootFolderID:        cfg.GoogleDriveRootFolderID,
		TokenURL:            cfg.GoogleTokenURL,
		Endpoint:            cfg.GoogleDriveEndpoint,
	})
	if err != nil {
		logger.Log.Warn("Google Drive relay disabled", "error", err)
	} else {
		drive = driveClient
	}

	var archivePinger usecase.Pinger
	if cfg.ArchiveBucket != "" {
		archive, err := storage.NewVideoArchive(ctx, storage.S3Config{
			Provider:        storage.Provider(strings.ToLower(cfg.ArchiveProvider)),
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			SecretAccessKey: cfg.ArchiveSecretAccessKey,
			Region:          cfg.ArchiveRegion,
			Bucket:          cfg.ArchiveBucket,
			Endpoint:        cfg.ArchiveEndpoint,
		})
		if err != nil {
			logger.Log.Warn("Video archive disabled", "error", err)
		} else {
			opts.Archive = archive
			archivePinger = archive
		}
	}

	// 8. Setup Credential Encryption
	var cipher domain.Cipher
	if cfg.CredentialsEncryptionKey != "" {
		box, err := security.NewSecretBox(cfg.CredentialsEncryptionKey)
		if err != nil {
			logger.Log.Error("Invalid CREDENTIALS_ENCRYPTION_KEY", "error", err)
			os.Exit(1)
		}
		cipher = box
	} else {
		logger.Log.Warn("CREDENTIALS_ENCRYPTION_KEY not set - credential endpoints are unavailable")
	}

	// 9. Setup UseCases
	validate := validation.New()

	onboardingUC := usecase.NewOnboardingUsecase(onboardingRepo, notifier, validate)
	intakeUC := usecase.NewIntakeUsecase(requestRepo, intakeRepo, notifier, validate)
	uploadUC := usecase.NewUploadUsecase(requestRepo, drive, validate, opts)
	credentialUC := usecase.NewCredentialUsecase(credentialRepo, cipher, notifier, audit, validate)
	adminUC := usecase.NewAdminUsecase(requestRepo, credentialRepo, adminRepo, cipher, notifier)
	authorizer := usecase.NewAuthorizer(roleRepo)

	var redisPinger usecase.Pinger
	if redis.IsAvailable() {
		redisPinger = usecase.PingFunc(redis.HealthCheck)
	}
	healthUC := usecase.NewHealthUsecase(map[string]usecase.Pinger{
		"database": dbPool,
		"redis":    redisPinger,
		"archive":  archivePinger,
	})

	// 10. Setup Auth (Supabase JWKS, HS256 fallback)
	jwksURL := strings.TrimRight(cfg.SupabaseUrl, "/") + "/auth/v1/.well-known/jwks.json"
	verifier := middleware.NewTokenVerifier(auth.NewProvider(jwksURL), cfg.SupabaseJWTSecret)

	// 11. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		OnboardingUC: onboardingUC,
		IntakeUC:     intakeUC,
		CredentialUC: credentialUC,
		AdminUC:      adminUC,
		UploadUC:     uploadUC,
		HealthUC:     healthUC,
		Authorizer:   authorizer,
		Verifier:     verifier,
		Audit:        audit,
		Config:       cfg,
	})

	// 12. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	// Unfinished notifications stay in the stream for the next start
	stopWorkers()
	jobs.Wait()

	logger.Log.Info("Server exiting")
}
