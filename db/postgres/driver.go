package postgres

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialector returns the pgx-backed dialector for dsn. Both URL
// ("postgres://...") and key/value ("host=... dbname=...") forms are accepted.
func Dialector(dsn string) (gorm.Dialector, error) {
	if dsn == "" {
		return nil, errors.New("database.postgres_dsn is empty")
	}
	return postgres.New(postgres.Config{DSN: dsn}), nil
}
