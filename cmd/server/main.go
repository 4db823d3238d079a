package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/cycredit/backend/docs"
	"github.com/cycredit/backend/internal/audit"
	"github.com/cycredit/backend/internal/config"
	"github.com/cycredit/backend/internal/database"
	"github.com/cycredit/backend/internal/events"
	"github.com/cycredit/backend/internal/handlers"
	mW "github.com/cycredit/backend/internal/middleware"
	"github.com/cycredit/backend/internal/repository"
	"github.com/cycredit/backend/internal/services"
)

// @title CyCredit Billing API
// @version 1.0
// @description In-app virtual economy ledger and billing engine
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("economy.credit_limit", "ECONOMY_CREDIT_LIMIT")
	viper.BindEnv("economy.starting_cash", "ECONOMY_STARTING_CASH")
	viper.BindEnv("economy.grace_days", "ECONOMY_GRACE_DAYS")
	viper.BindEnv("economy.apr", "ECONOMY_APR")
	viper.BindEnv("economy.max_turns", "ECONOMY_MAX_TURNS")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "CyCredit Billing API"
	docs.SwaggerInfo.Description = "In-app virtual economy ledger and billing engine"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	economy := config.LoadEconomyConfig()

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	store := repository.NewPostgres(db)
	auditor := audit.NewLogger()
	queue := events.NewQueue(redisClient)

	billingService := services.NewBillingService(store, economy, auditor, queue)
	gameService := services.NewGameService(store, economy)
	statementService := services.NewStatementService(store, economy, gameService, auditor, queue)
	storeService := services.NewStoreService(db, store, billingService, gameService)
	rewardService := services.NewRewardService(billingService)
	authService := services.NewAuthService(db, redisClient, economy)

	if err := storeService.SeedItems(context.Background()); err != nil {
		log.Printf("Warning: failed to seed store catalog: %v", err)
	}

	billingHandler := handlers.NewBillingHandler(billingService)
	statementHandler := handlers.NewStatementHandler(statementService)
	storeHandler := handlers.NewStoreHandler(storeService)
	gameHandler := handlers.NewGameHandler(gameService, statementService)
	rewardHandler := handlers.NewRewardHandler(rewardService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))

			r.Get("/auth/account", authService.GetUserAccount)

			r.Get("/billing/summary", billingHandler.GetSummary)
			r.Get("/billing/transactions", billingHandler.ListTransactions)
			r.Post("/billing/transactions", billingHandler.CreateTransaction)
			r.Put("/billing/transactions/{txId}", billingHandler.UpdateTransaction)
			r.Delete("/billing/transactions/{txId}", billingHandler.DeleteTransaction)
			r.Post("/billing/charge", billingHandler.Charge)
			r.Post("/billing/payment", billingHandler.Payment)

			r.Get("/statements/current", statementHandler.GetCurrent)
			r.Get("/statements/history", statementHandler.History)
			r.Post("/statements/{statementId}/pay", statementHandler.Pay)
			r.Get("/statements/{statementId}/qr", statementHandler.PayQR)

			r.Get("/store/items", storeHandler.ListItems)
			r.Put("/store/items/{itemId}", storeHandler.UpdateItem)
			r.Delete("/store/items/{itemId}", storeHandler.DeleteItem)
			r.Post("/store/purchase", storeHandler.Purchase)

			r.Post("/rewards/grant", rewardHandler.Grant)

			r.Get("/game/state", gameHandler.GetState)
			r.Post("/game/end-month", gameHandler.EndMonth)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
