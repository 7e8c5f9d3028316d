package mysql

import (
	"errors"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Dialector parses dsn and forces parseTime with UTC so reset timestamps scan
// into time.Time regardless of how the operator wrote the DSN.
func Dialector(dsn string) (gorm.Dialector, error) {
	if dsn == "" {
		return nil, errors.New("database.mysql_dsn is empty")
	}
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return mysql.New(mysql.Config{DSN: cfg.FormatDSN()}), nil
}
