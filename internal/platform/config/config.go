package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	// PostgresDSN selects the persistent stores; empty means in-memory.
	PostgresDSN string

	Redis RedisConfig
	Kafka KafkaConfig

	// DefaultEditionName is the well-known name of the edition assigned to
	// tenants created without an explicit edition choice.
	DefaultEditionName string

	// DefaultAdminPassword seeds the administrative account of every newly
	// provisioned tenant. Operators are expected to force a rotation on
	// first login.
	DefaultAdminPassword string

	// ConnStringKey is the hex-encoded AES key used to encrypt tenant
	// connection descriptors at rest.
	ConnStringKey string

	JWTSigningKey string
}

// RedisConfig controls the optional effective-feature cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the optional audit event pipeline.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                 envOr("STRATUS_ADDR", ":8080"),
		PostgresDSN:          os.Getenv("STRATUS_POSTGRES_DSN"),
		DefaultEditionName:   envOr("STRATUS_DEFAULT_EDITION", "Standard"),
		DefaultAdminPassword: envOr("STRATUS_DEFAULT_ADMIN_PASSWORD", "123qwe"),
		ConnStringKey:        os.Getenv("STRATUS_CONNSTRING_KEY"),
		JWTSigningKey:        envOr("STRATUS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("STRATUS_REDIS_URL"),
			PoolSize:     envInt("STRATUS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("STRATUS_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: envOr("STRATUS_AUDIT_TOPIC", "stratus.audit"),
		},
	}
	if brokers := os.Getenv("STRATUS_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
