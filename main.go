// api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"featuremart/api/database"
	"featuremart/api/features"
	"featuremart/api/handlers"
	"featuremart/api/middleware"
	"featuremart/api/models"
	"featuremart/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL Database (users + feature view registry) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse Database (event log + offline feature store) ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	// --- Initialize Redis (online feature store) ---
	rdbClient, err := database.NewRedisDB()
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer rdbClient.Close()

	// --- Initialize Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	eventStore := store.NewEventStore(chClient)
	offlineStore := store.NewOfflineStore(chClient)
	registryStore := store.NewRegistryStore(dbClient.DB)

	view := models.UserActivityFeatureView()
	if err := features.ConformsToView(&view); err != nil {
		log.Fatalf("Engineered features do not match the feature view schema: %v", err)
	}
	onlineStore := store.NewOnlineStore(rdbClient, view)

	// Register the user-activity feature view at startup so retrieval
	// clients can discover the served schema.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := registryStore.Apply(ctx, view); err != nil {
			cancel()
			log.Fatalf("Failed to apply feature view to registry: %v", err)
		}
		cancel()
	}

	// --- Initialize Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore)
	activityHandlers := handlers.NewActivityHandlers(eventStore)
	featureHandlers := handlers.NewFeatureHandlers(eventStore, offlineStore, onlineStore, registryStore)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// Authentication Endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)
		// Protected Routes (require a valid JWT token)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			protected.POST("/track", activityHandlers.TrackActivity)

			featureGroup := protected.Group("/features")
			{
				featureGroup.POST("/engineer", featureHandlers.EngineerFeatures)
				featureGroup.POST("/engineer/log", featureHandlers.EngineerFromLog)
				featureGroup.GET("/view", featureHandlers.GetFeatureView)
				featureGroup.POST("/historical", featureHandlers.GetHistoricalFeatures)
				featureGroup.POST("/online", featureHandlers.GetOnlineFeatures)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Go API server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Go API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
