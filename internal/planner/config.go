package planner

import (
	"log"
	"os"
	"strconv"
)

// Config holds the tunables of a planning run. Invalid values are
// clamped back to defaults rather than failing the run.
type Config struct {
	RiskWeight     float64 // >= 0
	QualityWeight  float64 // >= 0
	MaxRoutes      int     // >= 1, alternatives per village-shelter pair
	WorkerCount    int     // >= 1, bounded pool size
	MaxSnapDistM   float64 // meters, POI snap distance bound
	AltPathPenalty float64 // > 1, multiplicative edge penalty
	MaxAltAttempts int     // >= MaxRoutes, recompute cap
}

// DefaultConfig gives equal emphasis to distance, quality and risk
func DefaultConfig() Config {
	return Config{
		RiskWeight:     1.0,
		QualityWeight:  1.0,
		MaxRoutes:      3,
		WorkerCount:    4,
		MaxSnapDistM:   2000,
		AltPathPenalty: 1.5,
		MaxAltAttempts: 10,
	}
}

// LoadConfigFromEnv loads planner configuration from environment variables
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.RiskWeight = envFloat("PLANNER_RISK_WEIGHT", cfg.RiskWeight)
	cfg.QualityWeight = envFloat("PLANNER_QUALITY_WEIGHT", cfg.QualityWeight)
	cfg.MaxRoutes = envInt("PLANNER_MAX_ROUTES", cfg.MaxRoutes)
	cfg.WorkerCount = envInt("PLANNER_WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxSnapDistM = envFloat("PLANNER_MAX_SNAP_DISTANCE", cfg.MaxSnapDistM)
	cfg.AltPathPenalty = envFloat("PLANNER_ALT_PATH_PENALTY", cfg.AltPathPenalty)
	cfg.MaxAltAttempts = envInt("PLANNER_MAX_ALT_ATTEMPTS", cfg.MaxAltAttempts)

	return cfg.Validated()
}

// Validated returns a copy with out-of-range values clamped to defaults
func (c Config) Validated() Config {
	defaults := DefaultConfig()

	if c.RiskWeight < 0 {
		log.Printf("Warning: negative risk_weight %v, using default %v", c.RiskWeight, defaults.RiskWeight)
		c.RiskWeight = defaults.RiskWeight
	}
	if c.QualityWeight < 0 {
		log.Printf("Warning: negative quality_weight %v, using default %v", c.QualityWeight, defaults.QualityWeight)
		c.QualityWeight = defaults.QualityWeight
	}
	if c.MaxRoutes < 1 {
		c.MaxRoutes = defaults.MaxRoutes
	}
	if c.WorkerCount < 1 {
		c.WorkerCount = defaults.WorkerCount
	}
	if c.MaxSnapDistM <= 0 {
		c.MaxSnapDistM = defaults.MaxSnapDistM
	}
	if c.AltPathPenalty <= 1 {
		log.Printf("Warning: alternative_path_penalty must be > 1, using default %v", defaults.AltPathPenalty)
		c.AltPathPenalty = defaults.AltPathPenalty
	}
	if c.MaxAltAttempts < c.MaxRoutes {
		// Clamp to the default first so a zero value comes back as 10,
		// then keep the cap at least as large as the route count.
		c.MaxAltAttempts = defaults.MaxAltAttempts
		if c.MaxAltAttempts < c.MaxRoutes {
			c.MaxAltAttempts = c.MaxRoutes
		}
	}

	return c
}

func envFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid %s=%q, using default", key, value)
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using default", key, value)
	}
	return defaultValue
}
