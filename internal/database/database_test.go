package database_test

import (
	"strings"
	"testing"

	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildDSN 测试 DSN 生成
func TestBuildDSN(t *testing.T) {
	dsn := database.BuildDSN(config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "test",
		DBName:   "pulse_test",
		SSLMode:  "disable",
	})
	assert.True(t, strings.Contains(dsn, "host=localhost"))
	assert.True(t, strings.Contains(dsn, "user=postgres"))
	assert.True(t, strings.Contains(dsn, "dbname=pulse_test"))

	// URL 优先
	url := "postgres://u:p@db:5432/pulse?sslmode=disable"
	assert.Equal(t, url, database.BuildDSN(config.DatabaseConfig{URL: url, Host: "ignored"}))
}

// TestGetPoolConfig 测试连接池默认值
func TestGetPoolConfig(t *testing.T) {
	pool := database.GetPoolConfig()
	require.NotNil(t, pool)
	assert.Greater(t, pool.MaxIdleConns, 0)
	assert.Greater(t, pool.MaxOpenConns, pool.MaxIdleConns)
}

// TestConnectSQLiteAndMigrate 测试 sqlite 连接与迁移
func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   t.TempDir() + "/pulse.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.Migrate(db))
	// 迁移可重复执行
	require.NoError(t, database.Migrate(db))

	for _, table := range []string{"users", "teams", "projects", "tasks", "delay_alerts", "training_runs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, database.CheckHealth(db))
}

// TestConnectUnsupportedDriver 测试不支持的驱动
func TestConnectUnsupportedDriver(t *testing.T) {
	_, err := database.Connect(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
	assert.False(t, database.CheckHealth(nil))
}
