package db

import (
	"fmt"
	"time"

	"github.com/kasuganosora/questengine/config"
	dbmysql "github.com/kasuganosora/questengine/db/mysql"
	dbpostgres "github.com/kasuganosora/questengine/db/postgres"
	dbsqlite "github.com/kasuganosora/questengine/db/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeSQLite   = "sqlite"
	ModeMySQL    = "mysql"
	ModePostgres = "postgres"
)

// Open connects to the configured database. Slow statements and driver errors
// go to log; a nil log silences gorm.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var (
		dial gorm.Dialector
		err  error
	)
	switch cfg.Mode {
	case ModeSQLite:
		dial, err = dbsqlite.Dialector(cfg.SQLitePath)
	case ModeMySQL:
		dial, err = dbmysql.Dialector(cfg.MySQLDSN)
	case ModePostgres:
		dial, err = dbpostgres.Dialector(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("db: %s: %w", cfg.Mode, err)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		Logger:  newGormLogger(log, cfg.SlowThreshold),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Mode, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	if cfg.Mode == ModeSQLite && dbsqlite.InMemory(cfg.SQLitePath) {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)
	}
	return gdb, nil
}
