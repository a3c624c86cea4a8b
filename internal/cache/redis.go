package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evacroute/evacroute_core/internal/models"
)

var (
	client     *redis.Client
	clientOnce sync.Once
	clientErr  error
)

// Config holds Redis configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// LoadConfigFromEnv loads Redis configuration from environment variables
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, _ := time.ParseDuration(getEnv("CACHE_TTL", "1h"))

	return &Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		TTL:      ttl,
	}
}

// GetClient returns the global Redis client (singleton pattern)
func GetClient() (*redis.Client, error) {
	clientOnce.Do(func() {
		config := LoadConfigFromEnv()

		opts := &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		}

		if getEnv("REDIS_TLS_ENABLED", "false") == "true" {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			clientErr = fmt.Errorf("failed to connect to Redis: %w", err)
			return
		}
	})

	return client, clientErr
}

// Close closes the Redis client
func Close() {
	if client != nil {
		client.Close()
	}
}

// VillageRoutesKey generates a cache key for one village's routes under
// a given planner configuration fingerprint
func VillageRoutesKey(village, configFingerprint string) string {
	hash := sha256.Sum256([]byte(village))
	return fmt.Sprintf("routes:%x:%s", hash[:8], configFingerprint)
}

// ConfigFingerprint hashes the cost-relevant planner settings so cached
// routes are invalidated when the weighting changes
func ConfigFingerprint(riskWeight, qualityWeight float64, maxRoutes int) string {
	data := fmt.Sprintf("%.6f,%.6f,%d", riskWeight, qualityWeight, maxRoutes)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:8])
}

// GetVillageRoutes retrieves cached routes for a village (nil on miss)
func GetVillageRoutes(ctx context.Context, key string) ([]models.Route, error) {
	client, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}

	var routes []models.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached routes: %w", err)
	}

	return routes, nil
}

// SetVillageRoutes caches one village's routes
func SetVillageRoutes(ctx context.Context, key string, routes []models.Route, ttl time.Duration) error {
	client, err := GetClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("failed to marshal routes: %w", err)
	}

	return client.Set(ctx, key, data, ttl).Err()
}

// InvalidateRoutes drops every cached route entry; called after a new
// planning run replaces the stored routes
func InvalidateRoutes(ctx context.Context) error {
	client, err := GetClient()
	if err != nil {
		return err
	}

	iter := client.Scan(ctx, 0, "routes:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// AcquirePlanLock guards against concurrent planning runs.
// Returns true if the lock was acquired.
func AcquirePlanLock(ctx context.Context, ttl time.Duration) (bool, error) {
	client, err := GetClient()
	if err != nil {
		return false, err
	}

	ok, err := client.SetNX(ctx, "lock:plan", "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleasePlanLock releases the planning lock
func ReleasePlanLock(ctx context.Context) error {
	client, err := GetClient()
	if err != nil {
		return err
	}
	return client.Del(ctx, "lock:plan").Err()
}

// HealthCheck performs a health check on the Redis connection
func HealthCheck(ctx context.Context) error {
	client, err := GetClient()
	if err != nil {
		return fmt.Errorf("Redis client not initialized: %w", err)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
