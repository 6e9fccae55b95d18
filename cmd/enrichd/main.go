// Command enrichd serves book enrichment over HTTP: merged provider
// data per ISBN, free-text search, and NY Times bestseller lists.
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bookgrid/book-enrichment/internal/bookstore"
	"github.com/bookgrid/book-enrichment/pkg/cache"
	"github.com/bookgrid/book-enrichment/pkg/enrich"
	"github.com/bookgrid/book-enrichment/pkg/logging"
	"github.com/bookgrid/book-enrichment/pkg/provider"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
	})

	port := getEnv("PORT", "8080")
	cacheTTL := getEnvDuration("CACHE_TTL", cache.DefaultTTL)

	ctx := context.Background()

	responseCache := cache.New(newStore(ctx), cacheTTL)

	googleBooks := provider.NewGoogleBooks(provider.GoogleBooksConfig{
		APIKey: os.Getenv("GOOGLE_BOOKS_API_KEY"),
	})
	openLibrary := provider.NewOpenLibrary(provider.OpenLibraryConfig{})
	nyTimes := provider.NewNYTimes(provider.NYTimesConfig{
		APIKey: os.Getenv("NYTIMES_API_KEY"),
	})
	if os.Getenv("NYTIMES_API_KEY") == "" {
		log.Warn().Msg("NYTIMES_API_KEY not set, review data and bestseller lists disabled")
	}

	orchestrator, err := enrich.New(enrich.DefaultConfig(googleBooks, openLibrary, nyTimes, responseCache))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create orchestrator")
	}

	// The catalog database is optional; enrichment works without it.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create database pool")
		}
		defer pool.Close()

		catalog := bookstore.New(pool, responseCache)
		if err := catalog.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize catalog schema")
		}
		log.Info().Msg("Connected to catalog database")
	}

	srv := &server{
		enricher:    orchestrator,
		bestsellers: nyTimes,
		logger:      logging.NewLogger("http"),
		timeout:     30 * time.Second,
	}

	addr := ":" + port
	log.Info().Str("addr", addr).Msg("Starting enrichment server")
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newStore connects to Redis, falling back to the in-process store
// when Redis is unreachable. The service stays useful on a laptop
// without infrastructure; only cache persistence is lost.
func newStore(ctx context.Context) cache.Store {
	redisURL := getEnv("REDIS_URL", "localhost:6379")

	client := redis.NewClient(&redis.Options{Addr: redisURL})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", redisURL).Msg("Redis unreachable, using in-memory cache")
		client.Close()
		return cache.NewMemoryStore()
	}

	log.Info().Str("addr", redisURL).Msg("Connected to Redis")
	return cache.NewRedisStore(client)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
	return defaultValue
}
