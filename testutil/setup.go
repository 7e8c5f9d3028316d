package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/config"
	dbadapter "github.com/kasuganosora/questengine/db"
	"github.com/kasuganosora/questengine/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SetupTestDB opens a private in-memory SQLite database and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: dsn,
	}, nil)
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	t.Cleanup(func() { c.Close() })
	return c, ps
}
