package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cpaportal/internal/config"
	"cpaportal/internal/database"
	"cpaportal/internal/handlers"
	"cpaportal/internal/repository"
	"cpaportal/internal/security"
	"cpaportal/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	handlers.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	handlers.CompleteStep(handlers.StepDatabase)

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	handlers.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	handlers.CompleteStep(handlers.StepMigrations)

	log.Println("Migrations completed successfully")

	// Load templates
	handlers.SetCurrentStep(handlers.StepTemplates)
	templates, err := handlers.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	handlers.CompleteStep(handlers.StepTemplates)

	log.Println("Templates loaded successfully")

	// Initialize email
	handlers.SetCurrentStep(handlers.StepEmail)
	emailService, err := service.NewEmailService(context.Background(), cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.TokenLifespan, cfg.EmailDebug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	handlers.CompleteStep(handlers.StepEmail)

	// Initialize repositories
	handlers.SetCurrentStep(handlers.StepServices)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize services
	tokenService := service.NewTokenService(tokenRepo, cfg.TokenLifespan)
	authService := service.NewAuthService(userRepo, sessionRepo, tokenService, emailService, service.AuthConfig{
		AppBaseURL:      cfg.AppBaseURL,
		SessionDuration: cfg.SessionDuration,
		MaxFailedLogins: cfg.MaxFailedLogins,
		LockoutDuration: cfg.LockoutDuration,
	})
	dashboardService := service.NewDashboardService(service.NewMockDocumentProvider(), settingsRepo, emailService)
	backupService := service.NewBackupService(userRepo, settingsRepo)

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.SecretKey)
	render := handlers.NewRenderer(templates, security.NewFlashSigner(cfg.SecretKey), csrf)
	loginLimiter := security.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	app := &handlers.Handlers{
		Middleware: handlers.NewMiddleware(authService, csrf, loginLimiter),
		Account:    handlers.NewAccountHandler(authService, render),
		Admin:      handlers.NewAdminHandler(authService, dashboardService, backupService, render),
		Client:     handlers.NewClientHandler(authService, dashboardService, render),
		Home:       handlers.NewHomeHandler(render),
	}
	handlers.CompleteStep(handlers.StepServices)

	// Wrap with logging middleware
	handler := handlers.Logging(handlers.RequireReady(app.Routes(cfg.StaticFilesPath)))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background cleanup of sessions and credential tokens
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go cleanupExpired(ctx, authService)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()
	handlers.MarkReady()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// cleanupExpired periodically removes expired sessions and credential tokens
func cleanupExpired(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.CleanupExpired(ctx); err != nil {
				log.Printf("Error cleaning up expired sessions and tokens: %v", err)
			}
		}
	}
}
