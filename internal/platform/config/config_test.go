package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	require.Equal(t, ":8080", cfg.Addr)
	require.Empty(t, cfg.PostgresDSN)
	require.Equal(t, "Standard", cfg.DefaultEditionName)
	require.Equal(t, "123qwe", cfg.DefaultAdminPassword)
	require.Equal(t, "stratus.audit", cfg.Kafka.Topic)
	require.Empty(t, cfg.Kafka.Brokers)
	require.Equal(t, 10, cfg.Redis.PoolSize)
	require.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STRATUS_ADDR", ":9090")
	t.Setenv("STRATUS_DEFAULT_EDITION", "Premium")
	t.Setenv("STRATUS_REDIS_POOL_SIZE", "25")
	t.Setenv("STRATUS_REDIS_MIN_IDLE", "not-a-number")

	cfg := FromEnv()
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, "Premium", cfg.DefaultEditionName)
	require.Equal(t, 25, cfg.Redis.PoolSize)
	require.Equal(t, 2, cfg.Redis.MinIdleConns, "unparsable ints fall back to the default")
}

func TestFromEnvBrokerList(t *testing.T) {
	t.Setenv("STRATUS_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,,kafka-3:9092")

	cfg := FromEnv()
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092", "kafka-3:9092"}, cfg.Kafka.Brokers)
}
