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

	"domain-auction/internal/api/handlers"
	apimw "domain-auction/internal/api/middleware"
	"domain-auction/internal/auth"
	"domain-auction/internal/config"
	"domain-auction/internal/infrastructure/leader"
	"domain-auction/internal/infrastructure/redis"
	"domain-auction/internal/infrastructure/stores"
	"domain-auction/internal/services"
	"domain-auction/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "auction-service", "instance_id", cfg.Instance.ID)
	defer log.Sync()
	log.Info("Starting auction service", "config", cfg.GetConfigString())

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
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize store
	st, err := stores.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", "driver", cfg.Database.Driver, "error", err)
	}
	defer st.Close()

	// Initialize Redis based components
	profiles := redis.NewProfileCache(rdb, st.Profiles, cfg.Redis.ProfileCacheTTL)
	eventPublisher := redis.NewEventPublisher(rdb)
	overdueMarker := redis.NewOverdueMarker(rdb, cfg.Overdue.RemindTTL)

	authenticator, err := auth.NewJWTAuthenticator(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Skew:     cfg.Auth.Skew,
	})
	if err != nil {
		log.Fatal("Failed to configure authentication", "error", err)
	}

	auctionService := services.NewAuctionService(st.Auctions, profiles, eventPublisher, services.Options{
		MaxConflictRetries: cfg.Bidding.MaxConflictRetries,
		MaxDurationDays:    cfg.Bidding.MaxDurationDays,
	}, log)

	// Initialize leader election and the overdue notifier
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.Key, cfg.Leader.TTL)
	notifier := services.NewOverdueNotifier(cfg.Overdue.Schedule, st.Auctions, leaderElection,
		cfg.Instance.ID, overdueMarker, eventPublisher, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.BodyLimit("64K"))

	// Routes
	auctionHandler := handlers.NewAuctionHandler(auctionService, log)
	api := e.Group("/api/v1", apimw.BearerAuth(authenticator, log))
	auctionHandler.Register(api)

	e.GET("/health", handlers.NewHealthHandler("auction-service", st.Auctions).Check)

	// Start background services
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.Overdue.Enabled {
		if err := notifier.Start(bgCtx); err != nil {
			log.Fatal("Failed to start overdue notifier", "error", err)
		}
	}

	// Try to become leader
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			became, err := leaderElection.BecomeLeader(bgCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
			} else if became {
				log.Info("Became auction leader")
			}

			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopBackground()
	if cfg.Overdue.Enabled {
		if err := notifier.Stop(); err != nil {
			log.Error("Failed to stop overdue notifier", "error", err)
		}
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction service stopped")
}
