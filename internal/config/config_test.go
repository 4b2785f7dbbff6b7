package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.False(t, cfg.UsesPostgres())
	require.False(t, cfg.PublishesEvents())
	require.Equal(t, []string{"activity_events", "workflow_events"}, cfg.ConsumerTopics)
	require.Equal(t, LockBackendLocal, cfg.LockBackend)
	require.Equal(t, 30*time.Second, cfg.LockTTL)
	require.Equal(t, "app_user", cfg.DefaultActor)
	require.Equal(t, 25, cfg.OutboxBatchSize)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("POSTGRES_URL", "postgres://pm:pm@db:5432/pm")
	t.Setenv("LOCK_BACKEND", "Redis")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("DEFAULT_ACTOR", "analyst")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.UsesPostgres())
	require.True(t, cfg.PublishesEvents())
	require.Equal(t, LockBackendRedis, cfg.LockBackend)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, "analyst", cfg.DefaultActor)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "processmap.yaml"), []byte("http_address: \":9999\"\nlog_format: console\n"), 0o644))

	cfg, err := load(viper.New())
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, "console", cfg.LogFormat)
}

func TestLoadRejectsUnknownLockBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOCK_BACKEND", "zookeeper")

	_, err := Load()
	require.ErrorContains(t, err, "lock_backend")
}
