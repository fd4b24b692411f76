package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"chess-server/internal/audit"
	"chess-server/internal/auth"
	"chess-server/internal/config"
	"chess-server/internal/db"
	"chess-server/internal/eventbus"
	"chess-server/internal/handlers"
	"chess-server/internal/middleware"
	"chess-server/internal/services"
)

func main() {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting chess server in %s mode", cfg.Environment)

	var (
		store   db.Store
		mongodb *db.MongoDB
	)
	switch cfg.Storage.Driver {
	case config.StorageMongoDB:
		mongodb, err = db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		store = mongodb
		log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)
	default:
		store = db.NewMemoryStore()
		log.Println("Using in-memory storage")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store.Close(ctx)
	}()

	jwtService := auth.NewJWTService(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		time.Duration(cfg.JWT.AccessTTL)*time.Minute,
		time.Duration(cfg.JWT.RefreshTTL)*24*time.Hour,
	)

	users := services.NewUserService(store, jwtService, auth.NewPasswordService(), audit.NewLogger(store))
	if cfg.GoogleOAuthEnabled() {
		users.SetGoogleAuthenticator(auth.NewGoogleOAuthService(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.OAuth.GoogleRedirectURL,
		))
		log.Println("Google sign-in enabled")
	}
	games := services.NewGameService(store)

	hub := handlers.NewHub()
	games.SetObserver(hub)

	if cfg.EventBus.Enabled && mongodb != nil {
		bus := eventbus.New(mongodb.WSEvents(), hub.DeliverLocal)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := bus.EnsureIndexes(ctx); err != nil {
			log.Printf("[EventBus] Failed to ensure indexes: %v", err)
		}
		cancel()
		hub.SetPublisher(bus)
		bus.Start()
		defer bus.Stop()
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtService, store)
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	router := handlers.NewRouter(handlers.Routes{
		Auth:        handlers.NewAuthHandler(users, cfg.Frontend.URL),
		Games:       handlers.NewGameHandler(games, cfg.Admin.AllowClear),
		WebSocket:   handlers.NewWebSocketHandler(hub, games, authMiddleware),
		AuthMW:      authMiddleware,
		RateLimiter: rateLimiter,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
