package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"srg-miniapp-backend/internal/config"
	"srg-miniapp-backend/internal/game"
	"srg-miniapp-backend/internal/handlers"
	"srg-miniapp-backend/internal/middleware"
	"srg-miniapp-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	catalog, ranks, err := game.LoadDefaults()
	if cfg.CatalogPath != "" {
		catalog, ranks, err = game.LoadCatalogFile(cfg.CatalogPath)
	}
	if err != nil {
		log.Fatalf("Failed to load device catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d devices, %d ranks", len(catalog.Devices), len(ranks))

	var metrics *services.Metrics
	if cfg.MetricsEnabled {
		metrics = services.NewMetrics()
	}

	var notifier *services.Notifier
	if cfg.NotificationsEnabled && cfg.BotToken != "" {
		notifier, err = services.NewNotifier(cfg.BotToken)
		if err != nil {
			log.Printf("Telegram notifications disabled: %v", err)
		}
	}

	jwtService := services.NewJWTService(cfg)

	sessionManager := services.NewSessionManager(redisService, catalog, ranks, metrics, cfg.TickInterval, cfg.AutosaveInterval)
	profileService := services.NewProfileService(redisService, sessionManager)
	adminService := services.NewAdminService(redisService, redisService, sessionManager, notifier, metrics)

	tapLimiter := middleware.NewTapLimiter(10, 20)

	wsHandler := handlers.NewWebSocketHandler(sessionManager, profileService, redisService, tapLimiter)
	sessionManager.SetBroadcaster(wsHandler)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			sessionManager.CleanupStaleSessions(cfg.SessionIdleTTL)
			tapLimiter.Cleanup(cfg.SessionIdleTTL)
		}
	}()

	authHandler := handlers.NewAuthHandler(redisService, jwtService, profileService, cfg.BotToken)
	userHandler := handlers.NewUserHandler(redisService, sessionManager, profileService)
	playerHandler := handlers.NewPlayerHandler(sessionManager, profileService, redisService)
	adminHandler := handlers.NewAdminHandler(adminService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"active_sessions": sessionManager.ActiveSessions(),
		})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	router.GET("/auth/telegram", authHandler.Authenticate)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		gameRoutes := protected.Group("/game")
		{
			gameRoutes.GET("/state", playerHandler.GetState)
			gameRoutes.GET("/catalog", playerHandler.GetCatalog)
			gameRoutes.POST("/tap", tapLimiter.Middleware(), playerHandler.Tap)

			gameRoutes.POST("/devices/purchase", playerHandler.PurchaseDevice)
			gameRoutes.POST("/devices/sell", playerHandler.SellDevice)
			gameRoutes.POST("/slots/unlock", playerHandler.UnlockSlot)
			gameRoutes.POST("/exchange", playerHandler.Exchange)

			gameRoutes.POST("/withdrawals", playerHandler.CreateWithdrawal)
			gameRoutes.POST("/deposits", playerHandler.CreateDeposit)

			gameRoutes.POST("/daily/claim", playerHandler.ClaimDaily)
			gameRoutes.POST("/tasks/claim", playerHandler.ClaimTask)
			gameRoutes.POST("/referrals/claim", playerHandler.ClaimReferral)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminMiddleware(cfg))
		{
			admin.GET("/profiles", adminHandler.ListProfiles)
			admin.GET("/logs", adminHandler.GetLogs)

			admin.POST("/deposits/:id/approve", adminHandler.ApproveDeposit)
			admin.POST("/deposits/:id/reject", adminHandler.RejectDeposit)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)

			admin.GET("/users/:id", adminHandler.GetProfile)
			admin.PATCH("/users/:id", adminHandler.PatchProfile)
			admin.POST("/users/:id/silver", adminHandler.CreditSilver)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down, saving live sessions")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	sessionManager.StopAll()
}
