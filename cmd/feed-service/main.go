package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"domain-auction/internal/api/middleware"
	"domain-auction/internal/auth"
	"domain-auction/internal/config"
	"domain-auction/internal/infrastructure/redis"
	"domain-auction/internal/infrastructure/stores"
	"domain-auction/internal/infrastructure/websocket"
	"domain-auction/internal/services"
	"domain-auction/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "feed-service", "instance_id", cfg.Instance.ID)
	defer log.Sync()

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}

	// The feed only reads auctions to vet new watchers, so it needs the
	// same database as auction-service.
	st, err := stores.OpenShared(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", "driver", cfg.Database.Driver, "error", err)
	}
	defer st.Close()

	authenticator, err := auth.NewJWTAuthenticator(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Skew:     cfg.Auth.Skew,
	})
	if err != nil {
		log.Fatal("Failed to configure authentication", "error", err)
	}

	// Initialize connection manager and notifier
	connManager := websocket.NewConnectionManager(log)
	broadcaster := websocket.NewWebSocketNotifier(connManager)

	eventSubscriber := redis.NewRedisEventSubscriber(rdb, log)
	eventListener := services.NewEventListener(connManager, broadcaster, log)

	wsHandler := websocket.NewWebSocketHandler(st.Auctions, authenticator, connManager, log)

	// Setup routes
	router := mux.NewRouter()
	router.Use(middleware.CORSWithLogging(log))

	router.HandleFunc("/ws/auctions/{auctionID}", wsHandler.HandleConnection).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	// Start background services
	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()

	go func() {
		if err := eventListener.Start(listenCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Feed.Host, cfg.Feed.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting feed service", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down feed service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopListening()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Feed service stopped")
}
