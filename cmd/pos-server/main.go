package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_pos/internal/auth"
	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/checkout"
	poshttp "github.com/fjod/go_pos/internal/http"
	"github.com/fjod/go_pos/internal/publisher"
	"github.com/fjod/go_pos/internal/repository"
)

type Config struct {
	HTTPPort        string
	Postgres        repository.Credentials
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	TaxRate         float64
	Discount        float64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", "pos"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		TaxRate:         getEnvFloat("TAX_RATE", 0.08),
		Discount:        getEnvFloat("DISCOUNT", 0),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	repo, err := repository.NewRepository(&cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.Postgres); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.WithField("host", cfg.Postgres.Host).Info("connected to postgres")

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("redis connection failed")
	}
	log.WithField("addr", cfg.RedisAddr).Info("connected to redis")

	catalogCache := cache.NewRedisCache(redisClient)

	catalogService := catalog.NewService(repo, catalogCache, log)
	checkoutService := checkout.NewService(repo, catalogCache, log)

	sessions := auth.NewManager(repo, cart.Config{
		TaxRate:  cfg.TaxRate,
		Discount: cfg.Discount,
	})
	defer sessions.Close()

	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(repo, log, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)
	defer poller.Close()

	router := poshttp.NewRouter(sessions, catalogService, checkoutService, catalogService, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("pos server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}
