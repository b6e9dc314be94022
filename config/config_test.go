package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
mysql:
  master: "root:pw@tcp(db:3306)/littlepoll?parseTime=true"
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "root:pw@tcp(db:3306)/littlepoll?parseTime=true", cfg.MySQL.Master)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.MaxPageSize)
	assert.Equal(t, 5*time.Minute, cfg.Redis.AnalyticsTTL)
	assert.Equal(t, "poll-votes", cfg.Kafka.Topic)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "etcd", cfg.Lock.Driver)
	assert.Equal(t, "/graphql", cfg.GraphQL.Path)
	assert.Equal(t, *cfg, AppConfig)
}

func TestLoadConfigDurations(t *testing.T) {
	path := writeConfig(t, `
mysql:
  master: "dsn"
redis:
  timeout: 750ms
  analytics_ttl: 1h
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Redis.Timeout)
	assert.Equal(t, time.Hour, cfg.Redis.AnalyticsTTL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
mysql:
  master: "from-file"
`)
	t.Setenv("MYSQL_MASTER", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MySQL.Master)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "server:\n  port: 9000\n"))
	assert.ErrorContains(t, err, "mysql.master")

	_, err = LoadConfig(writeConfig(t, "mysql:\n  master: dsn\nlock:\n  driver: zookeeper\n"))
	assert.ErrorContains(t, err, "zookeeper")

	_, err = LoadConfig(writeConfig(t, "mysql:\n  master: dsn\nkafka:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "kafka.brokers")
}
