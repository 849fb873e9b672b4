package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/background"
	"github.com/brindlehq/talentbase/internal/config"
	"github.com/brindlehq/talentbase/internal/database"
	"github.com/brindlehq/talentbase/internal/handlers"
	"github.com/brindlehq/talentbase/internal/middleware"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/repositories"
	"github.com/brindlehq/talentbase/internal/routes"
	"github.com/brindlehq/talentbase/internal/services"
	"github.com/brindlehq/talentbase/internal/sessionstore"
	pkgauth "github.com/brindlehq/talentbase/pkg/auth"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
	pkglogger "github.com/brindlehq/talentbase/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run schema migrations before opening the pool
	if err := database.Migrate(cfg.Database.DSN()); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		cancel()
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	backupCodeRepo := repositories.NewBackupCodeRepository(db)
	deviceRepo := repositories.NewSessionDeviceRepository(db)
	policyRepo := repositories.NewPolicyRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Session and pending-enrollment stores
	sessionStore := sessionstore.New(rdb)
	pendingStore := sessionstore.NewPendingStore(rdb, cfg.Security.PendingEnrollmentTTL)

	// Lockout notifications over SES, or a log-only notifier when disabled
	var notifier services.LockoutNotifier
	if cfg.Notify.Enabled {
		sesNotifier, err := services.NewAWSSESNotifier(cfg.Notify.AWSRegion, cfg.Notify.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize notification service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	} else {
		notifier = services.NewNoopNotifier(logger)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	auditService := services.NewAuditService(auditRepo, auditLogger, logger)

	policyService := services.NewPolicyService(policyRepo, auditService, logger)
	lockoutService := services.NewLockoutService(accountRepo, notifier, auditService, logger)

	totpManager := auth.NewTOTPManager(cfg.Security.MFAIssuer)
	challengeManager := auth.NewChallengeTokenManager(cfg.Security.ChallengeTokenSecret, cfg.Security.ChallengeTokenTTL)
	mfaService := services.NewMFAService(accountRepo, backupCodeRepo, pendingStore, policyService, totpManager, auditService, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 50,
	})

	authService := services.NewAuthService(accountRepo, deviceRepo, sessionStore, policyService, lockoutService, mfaService, challengeManager, auditService, timingDelay, logger)
	sessionService := services.NewSessionService(deviceRepo, sessionStore, auditService, logger)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	routeHandlers := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, ipConfig),
		MFA:      handlers.NewMFAHandler(mfaService, ipConfig),
		Sessions: handlers.NewSessionHandler(sessionService, ipConfig),
		Policy:   handlers.NewPolicyHandler(policyService, ipConfig),
		Audit:    handlers.NewAuditHandler(auditService),
	}

	// Bootstrap first admin account if configured
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ensureAdminAccount(ctx, accountRepo, logger); err != nil {
			logger.Error("failed to ensure admin account", slog.Any("error", err))
		}
		cancel()
	}

	corsConfig := middleware.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middleware.CORS(corsConfig))
	router.Use(middleware.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	sessionAuth := auth.SessionAuth(sessionStore, deviceRepo, policyService, logger)
	router.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, routeHandlers, sessionAuth)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbUp := db.HealthCheck(ctx) == nil
		redisUp := rdb.Ping(ctx).Err() == nil

		w.Header().Set("Content-Type", "application/json")
		if !dbUp || !redisUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		w.Write([]byte(`{"database":` + upOrDown(dbUp) + `,"redis":` + upOrDown(redisUp) + `}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Sweep device rows whose sessions expired out of the store
	cleanupManager := background.NewCleanupManager(deviceRepo, logger, 1*time.Hour)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account if ADMIN_TENANT_ID,
// ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	tenantID := os.Getenv("ADMIN_TENANT_ID")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if tenantID == "" || adminEmail == "" || adminPassword == "" {
		logger.Info("admin bootstrap env vars not set, skipping admin account creation")
		return nil
	}

	_, err := accountRepo.GetByEmail(ctx, tenantID, adminEmail)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &models.Account{
		TenantID:          tenantID,
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		Name:              "Admin",
		Role:              models.RoleAdmin,
		EmploymentStatus:  models.EmploymentStatusActive,
		PasswordChangedAt: &now,
	}

	if _, err := accountRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func upOrDown(up bool) string {
	if up {
		return `"up"`
	}
	return `"down"`
}
