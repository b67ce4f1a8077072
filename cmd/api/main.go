// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/Marga-Ghale/ora-members-backend/internal/api/handlers"
	"github.com/Marga-Ghale/ora-members-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-members-backend/internal/billing"
	"github.com/Marga-Ghale/ora-members-backend/internal/config"
	"github.com/Marga-Ghale/ora-members-backend/internal/cron"
	"github.com/Marga-Ghale/ora-members-backend/internal/db"
	"github.com/Marga-Ghale/ora-members-backend/internal/email"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
	"github.com/Marga-Ghale/ora-members-backend/internal/service"
	"github.com/Marga-Ghale/ora-members-backend/internal/socket"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	// ============================================
	// Set Gin mode
	// ============================================
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("🔄 Running database migrations...")
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// ============================================
	// Initialize PostgreSQL (pgxpool + sqlx)
	// ============================================
	pg, err := db.NewPostgresDB(cfg.DatabaseURL, db.PoolSettings{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	sqlxDB, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to open sqlx DB: %v", err)
	}
	defer sqlxDB.Close()

	if err := sqlxDB.Ping(); err != nil {
		log.Fatalf("❌ Failed to ping sqlx DB: %v", err)
	}

	// ============================================
	// Initialize Repositories
	// ============================================
	repos := repository.NewRepositories(pg.Pool, sqlxDB)
	log.Println("📦 Repositories initialized")

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("⚡ Redis cache enabled")
		}
	}

	// ============================================
	// Initialize Billing Client
	// ============================================
	billingClient := billing.NewClient(cfg.BillingAPIURL, cfg.BillingAPIKey, redisDB)
	if cfg.SeatLimited() {
		log.Println("💳 Billing seat enforcement enabled (hosted mode)")
	} else {
		log.Println("💳 Billing seat enforcement disabled (self-hosted mode)")
	}

	// ============================================
	// Initialize Email Service
	// ============================================
	emailSvc := email.NewService(&email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		UseTLS:   cfg.SMTPUseTLS,
		BaseURL:  cfg.AppBaseURL,
	})
	if cfg.SMTPHost != "" {
		log.Println("📧 Email service initialized")
	} else {
		log.Println("⚠️  Email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)

	wsHandler := socket.NewHandler(hub, cfg.JWTSecret)
	log.Println("🔌 WebSocket hub initialized")

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:        cfg,
		Repos:         repos,
		Subscriptions: billingClient,
		Seats:         billingClient,
		EmailSvc:      emailSvc,
		Broadcaster:   broadcaster,
	})
	log.Println("✨ All services initialized")

	// ============================================
	// Initialize Handlers
	// ============================================
	h := handlers.NewHandlers(services)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	cronScheduler := cron.NewScheduler(
		repos.WorkspaceRepo,
		repos.MemberRepo,
		billingClient,
		cfg.SeatLimited(),
	)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"database":   "connected",
			"cache":      getCacheStatus(redisDB),
			"websocket":  "active",
			"ws_clients": hub.GetConnectedClientsCount(),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// ============================================
		// Public routes (no auth required)
		// ============================================

		// Invite preview, shown before sign-in
		api.GET("/invite-links/:code", h.Invitation.GetInviteInfo)

		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// ============================================
		// Protected routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			workspaces := protected.Group("/workspaces/:workspaceID")
			{
				workspaces.GET("/members", h.Member.ListMembers)
				workspaces.POST("/members/invite", h.Invitation.InviteMember)
				workspaces.DELETE("/members/:memberID", h.Invitation.RemoveMember)

				workspaces.GET("/invite-links", h.Invitation.ListInviteLinks)
				workspaces.POST("/invite-links", h.Invitation.GenerateInviteLink)

				workspaces.GET("/activity", h.Member.ListActivity)
			}

			members := protected.Group("/members")
			{
				members.POST("/:memberID/activate", h.Invitation.ActivateMember)
			}

			links := protected.Group("/invite-links")
			{
				// The :code segment is shared with the public preview route;
				// gin requires one wildcard name per segment, so the delete
				// endpoint carries the numeric link id under the same name.
				links.POST("/:code/redeem", h.Invitation.RedeemInviteLink)
				links.DELETE("/:code", h.Invitation.DeleteInviteLink)
			}
		}
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func getCacheStatus(redisDB *db.RedisDB) string {
	if redisDB != nil {
		return "connected"
	}
	return "disabled"
}
