package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/reed/pkg/matching"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.CatalogBackend)
	assert.Equal(t, 5*time.Minute, cfg.JobRetention)
	assert.Equal(t, 2*time.Minute, cfg.ImportLockTTL)
	assert.Equal(t, 30*time.Second, cfg.ImportLockWait)
	assert.Equal(t, time.Second, cfg.ImportLockRetryInterval)
	assert.Equal(t, []string{"GET", "POST"}, cfg.AllowMethods)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, matching.DefaultConfig(), cfg.MatchingConfig())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", BackendMemory)
	t.Setenv("MATCH_MIN_SCORE", "0.5")
	t.Setenv("MATCH_MAX_RESULTS", "3")
	t.Setenv("IMPORT_JOB_RETENTION", "90s")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.CatalogBackend)
	assert.Equal(t, 90*time.Second, cfg.JobRetention)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.KafkaEnabled())

	matcher := cfg.MatchingConfig()
	assert.Equal(t, 0.5, matcher.MinScore)
	assert.Equal(t, 3, matcher.MaxResults)
	assert.Equal(t, 0.9, matcher.AutoMatchScore)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_MigrationConfig(t *testing.T) {
	cfg := &Config{DatabaseMigrationFolderPath: "db/pg", DatabaseMigrationVersion: -1, DatabaseMigrationAutoRollback: true}

	migration := cfg.MigrationConfig()

	assert.Equal(t, "db/pg", migration.MigrationFolderPath)
	assert.Equal(t, uint(0), migration.Version)
	assert.True(t, migration.AutoRollback)
}
